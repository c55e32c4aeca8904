package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// translateCmd は、構成案JSONの翻訳のみを実行するのだ。
var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "構成案（JSON）を指定言語へ翻訳して保存するのだ。",
	Long: `structure コマンドで出力した構成案JSONを読み込み、タイトルと各区画の
見出し・本文を指定言語へ翻訳して保存するのだ。挿絵とスタイルはそのまま残るのだよ。`,
	RunE: translateCommand,
}

func translateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SourceFile == "" {
		return fmt.Errorf("構成案JSON（--source-file）を指定してほしいのだ")
	}
	if opts.Language == "" {
		return fmt.Errorf("翻訳先の言語（--language）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts
	cfg.GeminiModel = opts.AIModel

	slog.Info("翻訳モードを起動するのだ！",
		"language", opts.Language,
		"source", opts.SourceFile,
		"output", opts.OutputDir)

	err := pipeline.ExecuteTranslateOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("翻訳中にエラーが発生したのだ: %w", err)
	}

	slog.Info("翻訳（JSON）の保存が完了したのだ！")
	return nil
}
