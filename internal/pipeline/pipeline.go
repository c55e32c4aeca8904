package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shouni/go-poster-kit/internal/builder"
	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/pkg/director"
	"github.com/shouni/go-poster-kit/pkg/domain"
	"github.com/shouni/go-poster-kit/pkg/publisher"
	"github.com/shouni/go-poster-kit/pkg/session"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

const structuredFileName = "poster.json"

// Execute は、素材の読み込みから構造化・挿絵生成・保存までを一気に実行するのだ。
func Execute(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	rawText, err := readSource(ctx, appCtx)
	if err != nil {
		return err
	}

	ctrl, err := builder.BuildController(appCtx)
	if err != nil {
		return fmt.Errorf("コントローラーの構築に失敗したのだ: %w", err)
	}

	if err := ctrl.StartGenerate(ctx, rawText, cfg.Options.Mode); err != nil {
		return fmt.Errorf("ポスター生成に失敗したのだ: %w", err)
	}

	// フラグによる表示調整
	if cfg.Options.Layout != "" {
		ctrl.SelectLayout(cfg.Options.Layout)
	}
	if cfg.Options.Palette != "" {
		ctrl.SelectPalette(cfg.Options.Palette)
	}
	if cfg.Options.Language != "" && cfg.Options.Language != session.OriginalLanguage {
		if _, err := ctrl.ToggleLanguage(ctx, cfg.Options.Language); err != nil {
			return fmt.Errorf("翻訳に失敗したのだ: %w", err)
		}
	}

	doc := ctrl.Document()
	if doc == nil {
		return fmt.Errorf("生成されたポスターが空なのだ")
	}
	doc.Layout = ctrl.Layout()

	pub, err := builder.BuildPublisher(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("パブリッシャーの構築に失敗したのだ: %w", err)
	}

	result, err := pub.Publish(ctx, *doc, ctrl.Palette(), publisher.Options{OutputDir: cfg.Options.OutputDir})
	if err != nil {
		return fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}

	slog.Info("ポスターの生成と保存が完了したのだ！",
		"markdown", result.MarkdownPath,
		"html", result.HTMLPath,
		"images", len(result.ImagePaths),
	)
	return nil
}

// ExecuteStructureOnly は素材テキストの構造化だけを実行し、結果をJSONで保存するのだ。
// 挿絵生成を後段の別コマンドに回すときの前段として使う。
func ExecuteStructureOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	rawText, err := readSource(ctx, appCtx)
	if err != nil {
		return err
	}

	gw, err := builder.BuildGateway(appCtx)
	if err != nil {
		return err
	}

	structured, err := gw.StructureContent(ctx, rawText, cfg.Options.Mode)
	if err != nil {
		return fmt.Errorf("構造化に失敗したのだ: %w", err)
	}

	return writeDocumentJSON(ctx, appCtx, structured)
}

// ExecuteImageOnly は、構造化済みのJSONファイルを読み込み、
// 挿絵生成と保存処理だけを実行するのだ。
func ExecuteImageOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	structured, err := readDocumentJSON(ctx, appCtx, cfg.Options.SourceFile)
	if err != nil {
		return err
	}

	// 運転全体を再現するのではなく、ランナーとセッションを直接使って
	// 挿絵工程だけを進める。
	gw, err := builder.BuildGateway(appCtx)
	if err != nil {
		return err
	}

	sess, err := session.NewPosterSession(gw)
	if err != nil {
		return err
	}

	images, err := builder.BuildImageRunner(appCtx)
	if err != nil {
		return err
	}

	onProgress := func(completed, total int) {
		slog.Info("挿絵を生成したのだ", "completed", completed, "total", total)
	}
	imaged, err := images.GenerateAll(ctx, structured.Sections, structured.PosterStyle, onProgress)
	if err != nil {
		return fmt.Errorf("挿絵生成に失敗したのだ: %w", err)
	}

	doc := sess.Assemble(structured, imaged)

	pub, err := builder.BuildPublisher(ctx, appCtx)
	if err != nil {
		return err
	}
	result, err := pub.Publish(ctx, doc, director.MatchPalette(doc.PosterStyle), publisher.Options{OutputDir: cfg.Options.OutputDir})
	if err != nil {
		return fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}

	slog.Info("挿絵生成と保存が完了したのだ！", "markdown", result.MarkdownPath, "images", len(result.ImagePaths))
	return nil
}

// ExecuteTranslateOnly は、構造化済みのJSONファイルを指定言語へ翻訳して保存するのだ。
func ExecuteTranslateOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Options.Language == "" {
		return fmt.Errorf("翻訳先の言語（--language）を指定してください")
	}

	doc, err := readDocumentJSON(ctx, appCtx, cfg.Options.SourceFile)
	if err != nil {
		return err
	}

	gw, err := builder.BuildGateway(appCtx)
	if err != nil {
		return err
	}

	sess, err := session.NewPosterSession(gw)
	if err != nil {
		return err
	}
	sess.Assemble(doc, doc.Sections)

	translated, err := sess.ToggleLanguage(ctx, cfg.Options.Language)
	if err != nil {
		return fmt.Errorf("翻訳に失敗したのだ: %w", err)
	}

	return writeDocumentJSON(ctx, appCtx, translated)
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	aiClient, err := builder.InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, httpClient, aiClient, reader, writer)
	return &appCtx, nil
}

// readSource は、URLまたはパスの設定に基づいて適切な方法で素材テキストを取得するのだ。
func readSource(ctx context.Context, appCtx *builder.AppContext) (string, error) {
	if appCtx.Options.SourceURL != "" {
		extractor, err := builder.BuildExtractor(appCtx)
		if err != nil {
			return "", err
		}
		text, _, err := extractor.FetchAndExtractText(ctx, appCtx.Options.SourceURL)
		if err != nil {
			return "", fmt.Errorf("素材URL '%s' の取得に失敗しました: %w", appCtx.Options.SourceURL, err)
		}
		return text, nil
	}

	if appCtx.Options.SourceFile == "" {
		return "", fmt.Errorf("素材の入力元（--source-url または --source-file）を指定してください")
	}

	// "-" は標準入力なのだ
	if appCtx.Options.SourceFile == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("標準入力の読み込みに失敗しました: %w", err)
		}
		return string(data), nil
	}

	rc, err := appCtx.Reader.Open(ctx, appCtx.Options.SourceFile)
	if err != nil {
		return "", fmt.Errorf("素材ファイル '%s' の読み込みに失敗しました: %w", appCtx.Options.SourceFile, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readDocumentJSON は構造化済みポスターのJSONファイルを読み込むのだ。
func readDocumentJSON(ctx context.Context, appCtx *builder.AppContext, path string) (domain.PosterDocument, error) {
	var doc domain.PosterDocument
	if path == "" {
		return doc, fmt.Errorf("構造化済みJSON（--source-file）を指定してください")
	}

	rc, err := appCtx.Reader.Open(ctx, path)
	if err != nil {
		return doc, fmt.Errorf("JSONファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return doc, fmt.Errorf("JSONファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	return doc, nil
}

// writeDocumentJSON はポスタードキュメントをJSONとして保存するのだ。
func writeDocumentJSON(ctx context.Context, appCtx *builder.AppContext, doc domain.PosterDocument) error {
	outPath, err := publisher.ResolveOutputPath(appCtx.Options.OutputDir, structuredFileName)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONへの変換に失敗しました: %w", err)
	}

	if err := appCtx.Writer.Write(ctx, outPath, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("JSONファイルの書き込みに失敗しました: %w", err)
	}

	slog.Info("構成案を保存したのだ", "path", outPath)
	return nil
}
