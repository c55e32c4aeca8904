package director

import "strings"

// Palette はポスター表示と書き出しに使う配色の定義を保持します。
// BG は画面表示用のスタイルトークン、BGColor は書き出し時に使う実際の色です。
type Palette struct {
	Name    string
	BG      string
	BGColor string
	Title   string
	Heading string
	Text    string
	Accent  string
}

// Palettes は選択可能な配色の一覧です。先頭の Modern がデフォルトです。
var Palettes = []Palette{
	{
		Name:    "Modern",
		BG:      "bg-white",
		BGColor: "#ffffff",
		Title:   "text-gray-900",
		Heading: "text-gray-800",
		Text:    "text-gray-600",
		Accent:  "border-gray-300",
	},
	{
		Name:    "Corporate",
		BG:      "bg-blue-900",
		BGColor: "#1e3a8a",
		Title:   "text-white",
		Heading: "text-blue-200",
		Text:    "text-blue-100",
		Accent:  "border-blue-400",
	},
	{
		Name:    "Playful",
		BG:      "bg-yellow-300",
		BGColor: "#fde047",
		Title:   "text-gray-800",
		Heading: "text-pink-600",
		Text:    "text-gray-700",
		Accent:  "border-pink-500",
	},
	{
		Name:    "Dark Mode",
		BG:      "bg-gray-800",
		BGColor: "#1f2937",
		Title:   "text-white",
		Heading: "text-purple-300",
		Text:    "text-gray-300",
		Accent:  "border-purple-500",
	},
	{
		Name:    "Forest",
		BG:      "bg-green-900",
		BGColor: "#14532d",
		Title:   "text-white",
		Heading: "text-green-200",
		Text:    "text-green-100",
		Accent:  "border-green-400",
	},
	{
		Name:    "Sunset",
		BG:      "bg-orange-100",
		BGColor: "#ffedd5",
		Title:   "text-red-900",
		Heading: "text-orange-700",
		Text:    "text-gray-800",
		Accent:  "border-red-500",
	},
}

// MatchPalette は AI が提案したスタイル文字列のキーワードから初期配色を決定します。
// どのキーワードにも一致しない場合は Modern を返します。
func MatchPalette(styleSuggestion string) Palette {
	s := strings.ToLower(styleSuggestion)
	switch {
	case strings.Contains(s, "corporate") || strings.Contains(s, "blue"):
		return Palettes[1]
	case strings.Contains(s, "vibrant") || strings.Contains(s, "playful"):
		return Palettes[2]
	case strings.Contains(s, "elegant") || strings.Contains(s, "dark"):
		return Palettes[3]
	case strings.Contains(s, "nature") || strings.Contains(s, "forest") || strings.Contains(s, "green"):
		return Palettes[4]
	case strings.Contains(s, "warm") || strings.Contains(s, "sunset"):
		return Palettes[5]
	default:
		return Palettes[0]
	}
}

// FindPalette は名前で配色を検索します。見つからない場合はデフォルトを返します。
func FindPalette(name string) Palette {
	for _, p := range Palettes {
		if p.Name == name {
			return p
		}
	}
	return Palettes[0]
}
