package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/shouni/go-poster-kit/pkg/domain"
	"github.com/shouni/go-poster-kit/pkg/runner"
)

// mockGateway は gateway.Gateway の手書きモックなのだ。
type mockGateway struct {
	mu sync.Mutex

	structureFunc func(ctx context.Context, rawText, mode string) (domain.StructuredContent, error)
	generateFunc  func(ctx context.Context, prompt, style string) (string, error)
	editFunc      func(ctx context.Context, imageDataURI, instruction string) (string, error)
	translateFunc func(ctx context.Context, doc domain.PosterDocument, targetLanguage string) (domain.TranslatedContent, error)
	rewriteFunc   func(ctx context.Context, text, contextLabel string) (string, error)

	structureCalls int
	generateCalls  int
	editCalls      int
	translateCalls int
	rewriteCalls   int
}

func (m *mockGateway) StructureContent(ctx context.Context, rawText, mode string) (domain.StructuredContent, error) {
	m.mu.Lock()
	m.structureCalls++
	fn := m.structureFunc
	m.mu.Unlock()
	if fn == nil {
		return domain.StructuredContent{}, fmt.Errorf("structureFunc not set")
	}
	return fn(ctx, rawText, mode)
}

func (m *mockGateway) GenerateImage(ctx context.Context, prompt, style string) (string, error) {
	m.mu.Lock()
	m.generateCalls++
	fn := m.generateFunc
	m.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("generateFunc not set")
	}
	return fn(ctx, prompt, style)
}

func (m *mockGateway) EditImage(ctx context.Context, imageDataURI, instruction string) (string, error) {
	m.mu.Lock()
	m.editCalls++
	fn := m.editFunc
	m.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("editFunc not set")
	}
	return fn(ctx, imageDataURI, instruction)
}

func (m *mockGateway) TranslateDocument(ctx context.Context, doc domain.PosterDocument, targetLanguage string) (domain.TranslatedContent, error) {
	m.mu.Lock()
	m.translateCalls++
	fn := m.translateFunc
	m.mu.Unlock()
	if fn == nil {
		return domain.TranslatedContent{}, fmt.Errorf("translateFunc not set")
	}
	return fn(ctx, doc, targetLanguage)
}

func (m *mockGateway) RewriteText(ctx context.Context, text, contextLabel string) (string, error) {
	m.mu.Lock()
	m.rewriteCalls++
	fn := m.rewriteFunc
	m.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("rewriteFunc not set")
	}
	return fn(ctx, text, contextLabel)
}

// mockOrchestrator は ImageOrchestrator の手書きモック。既定では各区画に
// data URI 形式の画像を埋め、進捗を1区画ごとに報告するのだ。
type mockOrchestrator struct {
	generateAllFunc func(ctx context.Context, sections []domain.Section, style string, onProgress runner.ProgressFunc) ([]domain.Section, error)
	calls           int
}

func (m *mockOrchestrator) GenerateAll(ctx context.Context, sections []domain.Section, style string, onProgress runner.ProgressFunc) ([]domain.Section, error) {
	m.calls++
	if m.generateAllFunc != nil {
		return m.generateAllFunc(ctx, sections, style, onProgress)
	}
	out := make([]domain.Section, len(sections))
	for i, sec := range sections {
		sec.ImageURL = fmt.Sprintf("data:image/png;base64,aW1nLSVk%d", i)
		out[i] = sec
		if onProgress != nil {
			onProgress(i+1, len(sections))
		}
	}
	return out, nil
}
