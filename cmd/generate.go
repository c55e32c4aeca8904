package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、AIによるポスター構成案および挿絵の生成を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "AIにポスター構成案と挿絵を生成させますなのだ。",
	Long: `素材となる文章を解析し、タイトル、区画、スタイル案、および挿絵を生成するのだ。
出力はMarkdown（ポスター本体）と画像ファイル（挿絵）になるのだよ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SourceURL == "" && opts.SourceFile == "" && !isStdin() {
		return fmt.Errorf("素材（--source-url または --source-file）を指定してほしいのだ")
	}
	if opts.SourceURL == "" && opts.SourceFile == "" {
		opts.SourceFile = "-"
	}

	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel
	cfg.Options = opts

	slog.Info("ポスター生成パイプラインを起動するのだ！",
		"mode", opts.Mode,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"output", opts.OutputDir)

	err := pipeline.Execute(ctx, cfg)
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
