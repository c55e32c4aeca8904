package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-poster-kit/pkg/domain"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// Gateway は、外部の生成AIに対する5つのリモート操作の窓口です。
// すべての失敗は errors.go の分類のいずれかに包まれて返ります。
type Gateway interface {
	// StructureContent は生テキストをポスターの構成案に変換します。
	StructureContent(ctx context.Context, rawText, mode string) (domain.StructuredContent, error)
	// GenerateImage はプロンプトとスタイルから挿絵を1枚生成し、data URI を返します。
	GenerateImage(ctx context.Context, prompt, style string) (string, error)
	// EditImage は既存の挿絵（data URI）を自由文の指示で編集します。
	EditImage(ctx context.Context, imageDataURI, instruction string) (string, error)
	// TranslateDocument はタイトルと各区画の見出し・本文だけを対象言語に翻訳します。
	TranslateDocument(ctx context.Context, doc domain.PosterDocument, targetLanguage string) (domain.TranslatedContent, error)
	// RewriteText は単一フィールドのテキストを文脈ラベル付きで書き直します。
	RewriteText(ctx context.Context, text, contextLabel string) (string, error)
}

// PosterGateway は Gemini を使った Gateway の実体です。
type PosterGateway struct {
	aiClient   gemini.GenerativeModel // Gemini APIと通信するクライアント
	textModel  string                 // 構造化・翻訳・書き直しに使うモデル
	imageModel string                 // 挿絵の生成・編集に使うモデル
}

// NewPosterGateway は依存関係を注入して PosterGateway を初期化します。
func NewPosterGateway(aiClient gemini.GenerativeModel, textModel, imageModel string) (*PosterGateway, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("%w: aiClient is required", ErrGateway)
	}
	if textModel == "" || imageModel == "" {
		return nil, fmt.Errorf("%w: textModel と imageModel の両方が必要です", ErrGateway)
	}

	return &PosterGateway{
		aiClient:   aiClient,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// StructureContent は生テキストを解析し、タイトル・スタイル案・レイアウト案・
// 3〜5区画の構成案を返します。区画数の遵守はモデルへの指示で担保する契約であり、
// ここで機械的に弾くことはしません（範囲外は警告ログのみ）。
func (g *PosterGateway) StructureContent(ctx context.Context, rawText, mode string) (domain.StructuredContent, error) {
	instruction, err := InstructionByMode(mode)
	if err != nil {
		return domain.StructuredContent{}, fmt.Errorf("%w: %v", ErrStructuring, err)
	}

	resp, err := g.aiClient.GenerateContent(ctx, buildStructurePrompt(instruction, rawText), g.textModel)
	if err != nil {
		return domain.StructuredContent{}, fmt.Errorf("%w: %w", ErrStructuring, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return domain.StructuredContent{}, fmt.Errorf("%w: レスポンスが空です", ErrStructuring)
	}

	structured, err := decodeStructured(text)
	if err != nil {
		// JSONとして壊れているケースは、通信失敗とは別の文言で利用者に見せたい
		return domain.StructuredContent{}, fmt.Errorf("%w: %w", ErrStructuring, err)
	}

	if len(structured.Sections) == 0 {
		return domain.StructuredContent{}, fmt.Errorf("%w: 区画が1つも含まれていません", ErrStructuring)
	}
	if n := len(structured.Sections); n < 3 || n > 5 {
		slog.WarnContext(ctx, "区画数が指示の範囲（3〜5）から外れています", "count", n)
	}

	// AIが一覧外のレイアウト名を返しても、ここで必ず既知の値に丸める
	structured.Layout = domain.NormalizeLayout(structured.Layout)

	return structured, nil
}

// GenerateImage は挿絵を1枚生成して data URI で返します。
// リトライと退避は呼び出し側（runner）の責務なので、ここでは一切行いません。
func (g *PosterGateway) GenerateImage(ctx context.Context, prompt, style string) (string, error) {
	parts := []*genai.Part{
		{Text: buildImagePrompt(prompt, style)},
	}

	opts := gemini.GenerateOptions{
		AspectRatio: "1:1",
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.imageModel, parts, opts)
	if err != nil {
		// 呼び出し側が IsRateLimit で分類できるよう、原因エラーを連鎖に残す
		return "", fmt.Errorf("%w: %w", ErrImageGeneration, err)
	}

	blob := findImageBlob(resp)
	if blob == nil {
		return "", fmt.Errorf("%w: 画像が1枚も生成されませんでした (prompt: %q)", ErrImageGeneration, prompt)
	}

	return FormatDataURI(blob.MIMEType, blob.Data), nil
}

// EditImage は data URI を分解してインライン画像と指示文を送り、
// 編集後の画像を data URI で返します。モデルが画像を返さず文章だけを
// 返した場合は、その文言を拒否理由としてエラーに載せます。
func (g *PosterGateway) EditImage(ctx context.Context, imageDataURI, instruction string) (string, error) {
	mimeType, data, err := ParseDataURI(imageDataURI)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageEdit, err)
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		{Text: instruction},
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.imageModel, parts, gemini.GenerateOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageEdit, err)
	}

	if blob := findImageBlob(resp); blob != nil {
		return FormatDataURI(blob.MIMEType, blob.Data), nil
	}

	reason := findRefusalText(resp)
	if reason == "" {
		reason = "モデルが画像を返しませんでした。安全ポリシーにより拒否された可能性があります"
	}
	return "", fmt.Errorf("%w: %s", ErrImageEdit, reason)
}

// TranslateDocument はタイトルと各区画のテキストを対象言語へ翻訳します。
// 挿絵プロンプトと画像はレスポンスに含まれず、マージは呼び出し側が行います。
func (g *PosterGateway) TranslateDocument(ctx context.Context, doc domain.PosterDocument, targetLanguage string) (domain.TranslatedContent, error) {
	prompt, err := buildTranslatePrompt(doc, targetLanguage)
	if err != nil {
		return domain.TranslatedContent{}, fmt.Errorf("%w: %v", ErrTranslation, err)
	}

	resp, err := g.aiClient.GenerateContent(ctx, prompt, g.textModel)
	if err != nil {
		return domain.TranslatedContent{}, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return domain.TranslatedContent{}, fmt.Errorf("%w: レスポンスが空です", ErrTranslation)
	}

	translated, err := decodeTranslated(text)
	if err != nil {
		return domain.TranslatedContent{}, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	return translated, nil
}

// RewriteText は単一フィールドのテキストを書き直して返します。
func (g *PosterGateway) RewriteText(ctx context.Context, text, contextLabel string) (string, error) {
	resp, err := g.aiClient.GenerateContent(ctx, buildRewritePrompt(text, contextLabel), g.textModel)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTextRegeneration, err)
	}

	rewritten := strings.TrimSpace(resp.Text)
	if rewritten == "" {
		return "", fmt.Errorf("%w: レスポンスが空です", ErrTextRegeneration)
	}

	return rewritten, nil
}

// findImageBlob はレスポンスの最初の候補から画像パートを探します。
func findImageBlob(resp *gemini.Response) *genai.Blob {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil
	}

	// 現在の仕様では、Geminiからの最初の候補 (Candidate) のみを利用する。
	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content == nil {
		return nil
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// findRefusalText は画像が無いレスポンスからモデルの説明文（拒否理由）を拾います。
func findRefusalText(resp *gemini.Response) string {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return ""
	}

	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			return strings.TrimSpace(part.Text)
		}
	}
	return ""
}
