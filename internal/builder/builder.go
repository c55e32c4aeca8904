package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-poster-kit/pkg/gateway"
	"github.com/shouni/go-poster-kit/pkg/publisher"
	"github.com/shouni/go-poster-kit/pkg/runner"
	"github.com/shouni/go-poster-kit/pkg/session"
	"github.com/shouni/go-poster-kit/pkg/workflow"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-text-format/pkg/builder"
	"github.com/shouni/go-web-exact/v2/extract"
	"google.golang.org/genai"
)

const defaultGeminiTemperature = float32(0.2)

// InitializeAIClient は gemini クライアントを初期化します。
// 認証・接続系の失敗は gateway.ErrGateway として分類されます。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY が設定されていません", gateway.ErrGateway)
	}

	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: AIクライアントの初期化に失敗しました: %w", gateway.ErrGateway, err)
	}
	return aiClient, nil
}

// BuildGateway はポスター生成のAIゲートウェイを構築します。
func BuildGateway(appCtx *AppContext) (gateway.Gateway, error) {
	gw, err := gateway.NewPosterGateway(appCtx.aiClient, appCtx.TextModel(), appCtx.ImageModel())
	if err != nil {
		return nil, fmt.Errorf("ゲートウェイの初期化に失敗したのだ: %w", err)
	}
	return gw, nil
}

// BuildController は状態機械・セッション・挿絵ランナーを束ねて構築します。
func BuildController(appCtx *AppContext) (*workflow.Controller, error) {
	gw, err := BuildGateway(appCtx)
	if err != nil {
		return nil, err
	}

	sess, err := session.NewPosterSession(gw)
	if err != nil {
		return nil, fmt.Errorf("セッションの初期化に失敗したのだ: %w", err)
	}

	images, err := runner.NewPosterImageRunner(gw, runner.DefaultRetryPolicy())
	if err != nil {
		return nil, fmt.Errorf("挿絵ランナーの初期化に失敗したのだ: %w", err)
	}

	return workflow.NewController(gw, sess, images)
}

// BuildImageRunner は挿絵の一括生成を担当するランナーを構築します。
func BuildImageRunner(appCtx *AppContext) (*runner.PosterImageRunner, error) {
	gw, err := BuildGateway(appCtx)
	if err != nil {
		return nil, err
	}
	images, err := runner.NewPosterImageRunner(gw, runner.DefaultRetryPolicy())
	if err != nil {
		return nil, fmt.Errorf("挿絵ランナーの初期化に失敗したのだ: %w", err)
	}
	return images, nil
}

// BuildExtractor は Web ページから本文を抽出するエクストラクターを構築します。
func BuildExtractor(appCtx *AppContext) (*extract.Extractor, error) {
	extractor, err := extract.NewExtractor(appCtx.httpClient)
	if err != nil {
		return nil, fmt.Errorf("エクストラクタの初期化に失敗しました: %w", err)
	}
	return extractor, nil
}

// BuildPublisher はコンテンツ保存と変換を行うパブリッシャーを構築します。
func BuildPublisher(ctx context.Context, appCtx *AppContext) (*publisher.PosterPublisher, error) {
	if appCtx.Writer == nil {
		slog.WarnContext(ctx, "OutputWriterが未設定です。保存機能が制限される可能性があります")
	}

	htmlCfg := builder.BuilderConfig{
		EnableHardWraps: true,
	}
	md2htmlBuilder, err := builder.NewBuilder(htmlCfg)
	if err != nil {
		return nil, fmt.Errorf("md2htmlBuilderの初期化に失敗しました: %w", err)
	}
	md2htmlRunner, err := md2htmlBuilder.BuildRunner()
	if err != nil {
		return nil, fmt.Errorf("md2htmlrunnerの初期化に失敗しました: %w", err)
	}

	return publisher.NewPosterPublisher(appCtx.Writer, md2htmlRunner), nil
}
