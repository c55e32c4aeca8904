package gateway

import (
	"context"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

// mockAIClient は gemini.GenerativeModel のテスト用実装なのだ。
// 各フィールドに関数を差し込むことで、呼び出しごとの挙動を制御できるのだ。
type mockAIClient struct {
	generateContentFunc   func(ctx context.Context, prompt, model string) (*gemini.Response, error)
	generateWithPartsFunc func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)

	contentCalls int
	partsCalls   int
	lastPrompt   string
	lastParts    []*genai.Part
}

func (m *mockAIClient) GenerateContent(ctx context.Context, prompt, model string) (*gemini.Response, error) {
	m.contentCalls++
	m.lastPrompt = prompt
	if m.generateContentFunc != nil {
		return m.generateContentFunc(ctx, prompt, model)
	}
	return &gemini.Response{Text: ""}, nil
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.partsCalls++
	m.lastParts = parts
	if m.generateWithPartsFunc != nil {
		return m.generateWithPartsFunc(ctx, model, parts, opts)
	}
	return imageResponse("image/png", []byte("fake")), nil
}

func (m *mockAIClient) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	return "", "", nil
}

func (m *mockAIClient) DeleteFile(ctx context.Context, name string) error {
	return nil
}

func (m *mockAIClient) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return nil, nil
}

// imageResponse は画像パートを1つ含む Gemini レスポンスを作るヘルパーなのだ。
func imageResponse(mimeType string, data []byte) *gemini.Response {
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}},
				},
			}},
		},
	}
}

// textOnlyResponse は本文だけ（画像なし）のレスポンスを作るヘルパーなのだ。
func textOnlyResponse(text string) *gemini.Response {
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			}},
		},
	}
}
