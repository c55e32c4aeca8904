package builder

import (
	"github.com/shouni/go-poster-kit/internal/config"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、プロジェクトIDなど）。
	Options    config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です（モード、URL、モデル名など）。
	Reader     remoteio.InputReader    // Readerは、素材テキストの読み込みに使用する入力元です。
	Writer     remoteio.OutputWriter   // Writerは、生成されたポスターを保存するための出力先です。
	aiClient   gemini.GenerativeModel  // aiClient はGeminiの通信に使う共通クライアント
	httpClient httpkit.ClientInterface // httpClient は外部APIとの通信に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.ClientInterface,
	aiClient gemini.GenerativeModel,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		aiClient:   aiClient,
		httpClient: httpClient,
		Reader:     reader,
		Writer:     writer,
	}
}

// TextModel はフラグ指定を優先してテキスト生成モデル名を返すのだ。
func (a *AppContext) TextModel() string {
	if a.Options.AIModel != "" {
		return a.Options.AIModel
	}
	return a.Config.GeminiModel
}

// ImageModel はフラグ指定を優先して画像生成モデル名を返すのだ。
func (a *AppContext) ImageModel() string {
	if a.Options.ImageModel != "" {
		return a.Options.ImageModel
	}
	return a.Config.GeminiImageModel
}
