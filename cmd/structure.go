package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// structureCmd は、構成案の生成（JSON出力）のみを実行するのだ。
var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "ポスター構成案（JSON）のみを生成して保存するのだ。",
	Long: `素材となる文章を解析し、ポスターの構成案（タイトル、区画、スタイル案、挿絵プロンプト）を
JSON形式で出力するのだ。挿絵生成は行わないのだよ。`,
	RunE: structureCommand,
}

func structureCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SourceURL == "" && opts.SourceFile == "" && !isStdin() {
		return fmt.Errorf("素材（--source-url または --source-file）を指定してほしいのだ")
	}
	if opts.SourceURL == "" && opts.SourceFile == "" {
		opts.SourceFile = "-"
	}

	cfg := config.LoadConfig()
	cfg.Options = opts
	cfg.GeminiModel = opts.AIModel

	slog.Info("構成案生成モードを起動するのだ！",
		"mode", opts.Mode,
		"text_model", cfg.GeminiModel,
		"output", opts.OutputDir)

	err := pipeline.ExecuteStructureOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("構成案生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("構成案（JSON）の生成が完了したのだ！", "output_dir", opts.OutputDir)
	return nil
}
