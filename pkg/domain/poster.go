package domain

// Section はポスターを構成する1区画（見出し・本文・挿絵）を保持します。
type Section struct {
	Heading            string `json:"heading"`
	Text               string `json:"text"`
	IllustrationPrompt string `json:"illustration_prompt"`

	// ImageURL は生成された挿絵の data URI。構造化直後は空で、
	// 画像生成工程が完了した時点で埋まります。
	ImageURL string `json:"image_url,omitempty"`
}

// PosterDocument は AI が構造化したポスター全体の構成案です。
// Sections の順序がそのまま表示順になります。
type PosterDocument struct {
	Title       string    `json:"title"`
	PosterStyle string    `json:"posterStyle"`
	Layout      string    `json:"layout"`
	Sections    []Section `json:"sections"`
}

// StructuredContent は構造化ステップの出力（挿絵がまだ無い状態の構成案）です。
// 形は PosterDocument と同一ですが、役割を分けるために別名にしています。
type StructuredContent = PosterDocument

// TranslatedSection は翻訳レスポンス内の1区画分のテキストです。
type TranslatedSection struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// TranslatedContent は翻訳ステップのレスポンス構造です。
// 翻訳対象はタイトルと各区画の見出し・本文のみで、
// 挿絵プロンプトや画像には一切触れません。
type TranslatedContent struct {
	Title    string              `json:"title"`
	Sections []TranslatedSection `json:"sections"`
}

// Clone はドキュメントの防御的ディープコピーを返します。
// キャッシュに収めたスナップショットが、あとから編集される
// 現用ドキュメントと区画を共有しないようにするためのものです。
func (d PosterDocument) Clone() PosterDocument {
	copied := d
	if d.Sections != nil {
		copied.Sections = make([]Section, len(d.Sections))
		copy(copied.Sections, d.Sections)
	}
	return copied
}

// SectionCount は区画数を返します。
func (d PosterDocument) SectionCount() int {
	return len(d.Sections)
}
