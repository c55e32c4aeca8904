package publisher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-poster-kit/pkg/director"
	"github.com/shouni/go-poster-kit/pkg/domain"
	"github.com/shouni/go-poster-kit/pkg/gateway"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-text-format/pkg/md2htmlrunner"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string   // 生成された poster.md のパス
	HTMLPath     string   // 生成された HTML のパス
	ImagePaths   []string // 保存された全挿絵のパスリスト
}

const (
	defaultPosterName   = "poster.md"
	defaultImageDirName = "images"
	placeholder         = "placeholder.png"
)

var mimeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// PosterPublisher は成果物の永続化とフォーマット変換を担います。
type PosterPublisher struct {
	writer     remoteio.OutputWriter
	htmlRunner md2htmlrunner.Runner
}

// NewPosterPublisher creates and returns a new instance of PosterPublisher with the specified writer and HTML runner.
func NewPosterPublisher(writer remoteio.OutputWriter, htmlRunner md2htmlrunner.Runner) *PosterPublisher {
	return &PosterPublisher{
		writer:     writer,
		htmlRunner: htmlRunner,
	}
}

// Publish は挿絵の保存、Markdownの構築、HTML変換を一括して実行し、生成されたファイル情報を返却するのだ！
func (p *PosterPublisher) Publish(ctx context.Context, doc domain.PosterDocument, palette director.Palette, opts Options) (PublishResult, error) {
	result := PublishResult{}

	markdown, err := ResolveOutputPath(opts.OutputDir, defaultPosterName)
	if err != nil {
		return result, err
	}
	result.MarkdownPath = markdown

	imgDir, err := ResolveOutputPath(opts.OutputDir, defaultImageDirName)
	if err != nil {
		return result, err
	}

	savedPaths, err := p.saveImages(ctx, doc.Sections, imgDir)
	if err != nil {
		return result, fmt.Errorf("挿絵の書き込みに失敗しました: %w", err)
	}
	result.ImagePaths = savedPaths

	// Markdown には出力ディレクトリ相対のパスを埋める
	relativePaths := make([]string, 0, len(savedPaths))
	for _, pathStr := range savedPaths {
		relPath := path.Join(defaultImageDirName, filepath.Base(pathStr))
		relativePaths = append(relativePaths, relPath)
	}

	content := p.buildMarkdown(doc, palette, relativePaths)

	if err := p.writer.Write(ctx, markdown, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	if p.htmlRunner != nil {
		slog.Info("ポスターHTMLへ変換するのだ", "title", doc.Title, "palette", palette.Name)
		htmlBuffer, err := p.htmlRunner.Run(ctx, doc.Title, []byte(content))
		if err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}

		htmlPath := strings.TrimSuffix(markdown, filepath.Ext(markdown)) + ".html"
		if err := p.writer.Write(ctx, htmlPath, htmlBuffer, "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("htmlファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}

// saveImages は各区画の data URI 挿絵をデコードして保存し、パスのリストを返します。
// 挿絵を持たない区画は黙ってスキップします。
func (p *PosterPublisher) saveImages(ctx context.Context, sections []domain.Section, baseDir string) ([]string, error) {
	var paths []string
	for i, sec := range sections {
		if sec.ImageURL == "" {
			continue
		}
		mimeType, data, err := gateway.ParseDataURI(sec.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("区画 %d の挿絵を解釈できません: %w", i+1, err)
		}

		ext, ok := mimeExtensions[mimeType]
		if !ok {
			ext = ".png"
		}
		name := fmt.Sprintf("section_%d%s", i+1, ext)
		fullPath, err := ResolveOutputPath(baseDir, name)
		if err != nil {
			return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}

		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), mimeType); err != nil {
			return nil, fmt.Errorf("挿絵の書き込みに失敗しました %s: %w", fullPath, err)
		}
		paths = append(paths, fullPath)
	}
	return paths, nil
}

// buildMarkdown returns the Markdown content for the specified poster.
func (p *PosterPublisher) buildMarkdown(doc domain.PosterDocument, palette director.Palette, imagePaths []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", doc.Title))
	sb.WriteString(fmt.Sprintf("- style: %s\n", doc.PosterStyle))
	sb.WriteString(fmt.Sprintf("- layout: %s\n", doc.Layout))
	if palette.Name != "" {
		sb.WriteString(fmt.Sprintf("- palette: %s\n", palette.Name))
		sb.WriteString(fmt.Sprintf("- background: %s\n", palette.BGColor))
	}
	sb.WriteString("\n")

	imgIdx := 0
	for _, sec := range doc.Sections {
		sb.WriteString(fmt.Sprintf("## %s\n\n", sec.Heading))

		img := placeholder
		if sec.ImageURL != "" && imgIdx < len(imagePaths) {
			img = imagePaths[imgIdx]
			imgIdx++
		}
		sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", sec.Heading, img))
		sb.WriteString(sec.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
