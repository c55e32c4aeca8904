package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-poster-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は addAppFlags で各フラグと紐付けられる実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.SourceURL, "source-url", "u", "", "Webページから素材テキストを取得するためのURLなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.SourceFile, "source-file", "f", "", "素材テキストまたは構成案JSONのパス（'-'で標準入力、ローカル or gs://...）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "ポスターと挿絵の保存先ディレクトリ（ローカル or gs://...）なのだ。")

	// --- 生成内容の指定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Mode, "mode", "m", config.DefaultMode, "生成モード（summarize または illustrate）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Layout, "layout", "l", "", "レイアウト形式（Single Column、Grid など）なのだ。省略時はAIの提案に従うのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Palette, "palette", "", "配色名（Modern、Dark Mode など）なのだ。省略時はスタイル案から選ぶのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Language, "language", "", "翻訳して出力する言語コード（ja、zh など）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "テキスト生成に使用する Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "挿絵生成に使用する Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"ap-poster-go",
		addAppFlags,
		preRunAppE,
		generateCmd,
		structureCmd,
		imageCmd,
		translateCmd,
	)
}
