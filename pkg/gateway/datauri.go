package gateway

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

// dataURIPattern は `data:<mime>;base64,<payload>` 形式の data URI を分解します。
var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// FormatDataURI は画像バイト列と MIME タイプから自己完結型の data URI を組み立てます。
func FormatDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI は data URI を MIME タイプと生のバイト列に分解します。
// パターンに一致しない場合やペイロードが base64 として壊れている場合は
// ErrInvalidDataURI を包んだエラーを返します。
func ParseDataURI(uri string) (mimeType string, data []byte, err error) {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return "", nil, fmt.Errorf("%w: パターンに一致しません", ErrInvalidDataURI)
	}

	decoded, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("%w: base64のデコードに失敗しました: %v", ErrInvalidDataURI, err)
	}

	return m[1], decoded, nil
}
