package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-poster-kit/pkg/director"
	"github.com/shouni/go-poster-kit/pkg/domain"
)

// recordingWriter は remoteio.OutputWriter の手書きモックなのだ。
type recordingWriter struct {
	paths        []string
	contents     [][]byte
	contentTypes []string
	err          error
}

func (w *recordingWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.paths = append(w.paths, path)
	w.contents = append(w.contents, data)
	w.contentTypes = append(w.contentTypes, contentType)
	return nil
}

// stubHTMLRunner は md2htmlrunner.Runner の手書きスタブなのだ。
type stubHTMLRunner struct {
	out   string
	err   error
	title string
}

func (s *stubHTMLRunner) Run(ctx context.Context, title string, source []byte) (*bytes.Buffer, error) {
	s.title = title
	if s.err != nil {
		return nil, s.err
	}
	return bytes.NewBufferString(s.out), nil
}

func pngDataURI(payload string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func twoSectionPoster() domain.PosterDocument {
	return domain.PosterDocument{
		Title:       "Deep Sea Creatures",
		PosterStyle: "elegant and dark",
		Layout:      domain.LayoutTwoColumnAlternating,
		Sections: []domain.Section{
			{Heading: "Anglerfish", Text: "Lures prey with light.", ImageURL: pngDataURI("fish-bytes")},
			{Heading: "Giant Squid", Text: "Rarely seen alive."},
		},
	}
}

func TestPosterPublisher_Publish(t *testing.T) {
	t.Run("挿絵とMarkdownを書き出す", func(t *testing.T) {
		writer := &recordingWriter{}
		pub := NewPosterPublisher(writer, nil)
		palette := director.FindPalette("Dark Mode")

		result, err := pub.Publish(context.Background(), twoSectionPoster(), palette, Options{OutputDir: "out"})

		require.NoError(t, err)
		assert.Equal(t, "out/poster.md", result.MarkdownPath)
		assert.Empty(t, result.HTMLPath)
		require.Equal(t, []string{"out/images/section_1.png"}, result.ImagePaths)

		require.Len(t, writer.paths, 2)
		assert.Equal(t, "out/images/section_1.png", writer.paths[0])
		assert.Equal(t, []byte("fish-bytes"), writer.contents[0])
		assert.Equal(t, "image/png", writer.contentTypes[0])

		assert.Equal(t, "out/poster.md", writer.paths[1])
		assert.Equal(t, "text/markdown; charset=utf-8", writer.contentTypes[1])

		markdown := string(writer.contents[1])
		assert.Contains(t, markdown, "# Deep Sea Creatures")
		assert.Contains(t, markdown, "- layout: Two Column Alternating")
		assert.Contains(t, markdown, "- palette: Dark Mode")
		assert.Contains(t, markdown, "- background: #1f2937")
		assert.Contains(t, markdown, "![Anglerfish](images/section_1.png)")
		// 挿絵の無い区画はプレースホルダーで埋める
		assert.Contains(t, markdown, "![Giant Squid](placeholder.png)")
		assert.Contains(t, markdown, "Lures prey with light.")
	})

	t.Run("HTMLランナーがあればHTMLも書き出す", func(t *testing.T) {
		writer := &recordingWriter{}
		runner := &stubHTMLRunner{out: "<html><body>poster</body></html>"}
		pub := NewPosterPublisher(writer, runner)

		result, err := pub.Publish(context.Background(), twoSectionPoster(), director.FindPalette("Dark Mode"), Options{OutputDir: "out"})

		require.NoError(t, err)
		assert.Equal(t, "out/poster.html", result.HTMLPath)
		assert.Equal(t, "Deep Sea Creatures", runner.title)

		// 挿絵 → Markdown → HTML の順に書き出される
		require.Len(t, writer.paths, 3)
		assert.Equal(t, "out/poster.html", writer.paths[2])
		assert.Equal(t, "text/html; charset=utf-8", writer.contentTypes[2])
		assert.Equal(t, []byte("<html><body>poster</body></html>"), writer.contents[2])
	})

	t.Run("HTML変換の失敗はラップして返す", func(t *testing.T) {
		writer := &recordingWriter{}
		runner := &stubHTMLRunner{err: errors.New("markdown parse error")}
		pub := NewPosterPublisher(writer, runner)

		result, err := pub.Publish(context.Background(), twoSectionPoster(), director.Palette{}, Options{OutputDir: "out"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTMLの変換に失敗しました")
		assert.Empty(t, result.HTMLPath)
	})

	t.Run("壊れたdata URIはエラーになる", func(t *testing.T) {
		writer := &recordingWriter{}
		pub := NewPosterPublisher(writer, nil)
		doc := twoSectionPoster()
		doc.Sections[0].ImageURL = "https://example.com/not-a-data-uri.png"

		_, err := pub.Publish(context.Background(), doc, director.Palette{}, Options{OutputDir: "out"})

		require.Error(t, err)
		assert.Empty(t, writer.paths)
	})

	t.Run("書き込み失敗はラップして返す", func(t *testing.T) {
		writer := &recordingWriter{err: io.ErrClosedPipe}
		pub := NewPosterPublisher(writer, nil)

		_, err := pub.Publish(context.Background(), twoSectionPoster(), director.Palette{}, Options{OutputDir: "out"})

		require.ErrorIs(t, err, io.ErrClosedPipe)
	})
}

func TestResolveOutputPath(t *testing.T) {
	t.Run("ローカルパスは filepath で結合する", func(t *testing.T) {
		got, err := ResolveOutputPath("out/posters", "poster.md")
		require.NoError(t, err)
		assert.Equal(t, "out/posters/poster.md", got)
	})

	t.Run("GCS URI はスキームを保護して結合する", func(t *testing.T) {
		got, err := ResolveOutputPath("gs://my-bucket/posters", "poster.md")
		require.NoError(t, err)
		assert.Equal(t, "gs://my-bucket/posters/poster.md", got)
	})
}
