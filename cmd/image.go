package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// imageCmd は、構成案JSONを基に挿絵生成と保存のみを実行するのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "構成案（JSON）から挿絵を生成して保存するのだ。",
	Long: `structure コマンドで出力した構成案JSONを読み込み、各区画の挿絵を生成して
ポスターとして保存するのだ。構造化はやり直さないのだよ。`,
	RunE: imageCommand,
}

func imageCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SourceFile == "" {
		return fmt.Errorf("構成案JSON（--source-file）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts
	cfg.GeminiImageModel = opts.ImageModel

	slog.Info("挿絵生成モードを起動するのだ！",
		"image_model", cfg.GeminiImageModel,
		"source", opts.SourceFile,
		"output", opts.OutputDir)

	err := pipeline.ExecuteImageOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("挿絵生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("挿絵生成と保存が完了したのだ！")
	return nil
}
