package session

// Field は編集対象のフィールド種別です。
type Field string

const (
	FieldTitle   Field = "title"
	FieldHeading Field = "heading"
	FieldText    Field = "text"
)

// Target はドキュメント内の編集対象（タイトル、または区画番号＋フィールド）を指します。
// 区画の同一性は位置ベースです。1回の生成運転では区画の挿入・削除が無いため、
// 安定した並び順がそのまま識別子として機能します。
type Target struct {
	Field        Field
	SectionIndex int
}

// TitleTarget はドキュメントタイトルを指す Target を返します。
func TitleTarget() Target {
	return Target{Field: FieldTitle}
}

// SectionTarget は指定区画の見出しまたは本文を指す Target を返します。
func SectionTarget(index int, field Field) Target {
	return Target{Field: field, SectionIndex: index}
}
