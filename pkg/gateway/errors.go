package gateway

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ゲートウェイ境界のエラー分類。すべての失敗はこのいずれかに包まれて返り、
// 未分類のエラーがこの層を素通りすることはありません。
var (
	// ErrStructuring は構造化レスポンスが空、またはスキーマとして解釈できない場合。
	ErrStructuring = errors.New("コンテンツの構造化に失敗しました")
	// ErrMalformedResponse は構造化・翻訳レスポンスが JSON として壊れている場合。
	// ErrStructuring / ErrTranslation と併せて包まれます。
	ErrMalformedResponse = errors.New("AIレスポンスをJSONとして解釈できませんでした")
	// ErrImageGeneration はリトライ退避の後も画像が1枚も得られなかった場合。
	ErrImageGeneration = errors.New("画像の生成に失敗しました")
	// ErrImageEdit はモデルが画像パートを返さなかった（拒否した）場合。
	ErrImageEdit = errors.New("画像の編集に失敗しました")
	// ErrTranslation は翻訳レスポンスが空または解釈不能な場合。
	ErrTranslation = errors.New("翻訳に失敗しました")
	// ErrTextRegeneration はテキストの書き直しレスポンスが空の場合。
	ErrTextRegeneration = errors.New("テキストの再生成に失敗しました")
	// ErrInvalidDataURI は data URI が規定の形式に一致しない場合。
	ErrInvalidDataURI = errors.New("data URI の形式が不正です")
	// ErrGateway は上記いずれにも分類できない通信・認証系の失敗。
	ErrGateway = errors.New("AIゲートウェイでエラーが発生しました")
)

// IsRateLimit は err がリモート側の流量制限（HTTP 429）によるものかを判定します。
// リトライしてよいのはこの種別だけで、それ以外の失敗は即座に打ち切ります。
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429
	}

	// クライアント側でラップされて型情報が落ちた場合のフォールバック
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
