package domain

// ポスターのレイアウト候補。AI への指示とレスポンス検証の両方で使います。
const (
	LayoutSingleColumn         = "Single Column"
	LayoutTwoColumnAlternating = "Two Column Alternating"
	LayoutGrid                 = "Grid"
	LayoutCards                = "Cards"
)

// Layouts は選択可能なレイアウトの一覧です。順序は UI の表示順に合わせています。
var Layouts = []string{
	LayoutSingleColumn,
	LayoutTwoColumnAlternating,
	LayoutGrid,
	LayoutCards,
}

// IsValidLayout は layout が既知のレイアウト名かどうかを返します。
func IsValidLayout(layout string) bool {
	for _, l := range Layouts {
		if l == layout {
			return true
		}
	}
	return false
}

// NormalizeLayout は AI が一覧外のレイアウト名を返した場合に
// Single Column へ丸め込みます。一覧内の値はそのまま返します。
func NormalizeLayout(layout string) string {
	if IsValidLayout(layout) {
		return layout
	}
	return LayoutSingleColumn
}
