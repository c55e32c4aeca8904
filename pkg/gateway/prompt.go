package gateway

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shouni/go-poster-kit/pkg/domain"
)

// 構造化モード。summarize は要約リライト、illustrate は本文を原文のまま使います。
const (
	ModeSummarize  = "summarize"
	ModeIllustrate = "illustrate"
)

//go:embed summarize.md
var summarizePrompt string

//go:embed illustrate.md
var illustratePrompt string

// modeInstructions はモードとシステム指示文を紐づけるマップなのだ。
var modeInstructions = map[string]string{
	ModeSummarize:  summarizePrompt,
	ModeIllustrate: illustratePrompt,
}

// InstructionByMode は、指定されたモードに対応する構造化指示文を返すのだ。
func InstructionByMode(mode string) (string, error) {
	content, ok := modeInstructions[mode]
	if !ok {
		supported := slices.Collect(maps.Keys(modeInstructions))
		slices.Sort(supported)

		return "", fmt.Errorf("サポートされていないモード: '%s'。サポートされているモードは [%s] です",
			mode, strings.Join(supported, ", "))
	}

	if content == "" {
		return "", fmt.Errorf("モード '%s' に対応する指示テンプレートが空なのだ。embed設定を確認してほしいのだ", mode)
	}

	return content, nil
}

// buildStructurePrompt は構造化指示文と入力テキストを1つのプロンプトに結合します。
func buildStructurePrompt(instruction, rawText string) string {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n### INPUT TEXT ###\n")
	sb.WriteString(rawText)
	return sb.String()
}

// buildImagePrompt は挿絵プロンプトにスタイル接頭辞と背景指示を合成します。
func buildImagePrompt(prompt, style string) string {
	return fmt.Sprintf("%s illustration style. %s. Clean background.", style, prompt)
}

// buildTranslatePrompt は翻訳対象（タイトルと各区画のテキスト）をJSONに畳み込み、
// 対象言語を指定した翻訳指示を組み立てます。
func buildTranslatePrompt(doc domain.PosterDocument, targetLanguage string) (string, error) {
	payload := domain.TranslatedContent{
		Title:    doc.Title,
		Sections: make([]domain.TranslatedSection, 0, len(doc.Sections)),
	}
	for _, sec := range doc.Sections {
		payload.Sections = append(payload.Sections, domain.TranslatedSection{
			Heading: sec.Heading,
			Text:    sec.Text,
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("翻訳対象のエンコードに失敗しました: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are an expert translator. Translate the provided JSON object's text fields ('title', 'heading', 'text') into ")
	sb.WriteString(targetLanguage)
	sb.WriteString(".\n")
	sb.WriteString("- Do NOT change the structure of the JSON.\n")
	sb.WriteString("- Respond strictly with the translated JSON object, and nothing else.\n")
	sb.WriteString("- The translation should be accurate and natural-sounding.\n\n")
	sb.WriteString("Please translate this content: ")
	sb.Write(encoded)
	return sb.String(), nil
}

// buildRewritePrompt は単一フィールドの書き直し指示を組み立てます。
// contextLabel は "Section heading" のような短い文脈ラベルです。
func buildRewritePrompt(text, contextLabel string) string {
	var sb strings.Builder
	sb.WriteString("You are a creative copywriter. Rewrite the provided text to be more engaging, clear, or concise, based on the context. ")
	sb.WriteString("Respond with only the rewritten text, no extra formatting or explanations.\n\n")
	sb.WriteString("Context: ")
	sb.WriteString(contextLabel)
	sb.WriteString("\n\nText to rewrite: \"")
	sb.WriteString(text)
	sb.WriteString("\"")
	return sb.String()
}
