package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-poster-kit/pkg/domain"
)

// extractJSON は、AIが返したテキストからMarkdownのコードブロック等を除去するのだ。
// AIは ```json ... ``` で囲んで返してくることが多いので、その対策なのだ。
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeStructured は構造化レスポンスのJSONをドメイン構造体に変換します。
// JSONとして壊れている場合は ErrMalformedResponse を包んで返します。
func decodeStructured(raw string) (domain.StructuredContent, error) {
	var structured domain.StructuredContent
	if err := json.Unmarshal([]byte(extractJSON(raw)), &structured); err != nil {
		return domain.StructuredContent{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return structured, nil
}

// decodeTranslated は翻訳レスポンスのJSONをドメイン構造体に変換します。
func decodeTranslated(raw string) (domain.TranslatedContent, error) {
	var translated domain.TranslatedContent
	if err := json.Unmarshal([]byte(extractJSON(raw)), &translated); err != nil {
		return domain.TranslatedContent{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return translated, nil
}
