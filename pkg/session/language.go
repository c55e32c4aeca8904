package session

// OriginalLanguage は生成直後のドキュメントの言語コードです。
const OriginalLanguage = "en"

// languageNames は言語コードと、AIへの指示に使う言語名の対応表なのだ。
var languageNames = map[string]string{
	"en": "English",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
}

// LanguageName は言語コードを AI 指示用の言語名に変換します。
// 対応表に無いコードはそのまま返します（モデルはコードでも概ね解釈できるため）。
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
