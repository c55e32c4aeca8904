package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/go-poster-kit/pkg/domain"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ErrNoDocument は、生成運転が一度も完了していない状態で
// ドキュメント前提の操作を呼んだ場合に返ります。
var ErrNoDocument = errors.New("ポスタードキュメントがまだありません")

// Translator は session が必要とする翻訳操作だけを切り出したインターフェースです。
type Translator interface {
	TranslateDocument(ctx context.Context, doc domain.PosterDocument, targetLanguage string) (domain.TranslatedContent, error)
}

// PosterSession は1回の生成運転に紐づくドキュメント状態の唯一の持ち主です。
// 編集可能な current、不変の original スナップショット、言語ごとの翻訳キャッシュを
// 保持します。グローバル変数ではなく、この構造体を明示的に引き回します。
type PosterSession struct {
	mu           sync.Mutex
	current      *domain.PosterDocument
	original     *domain.PosterDocument
	translations *gocache.Cache     // 言語コード → PosterDocument スナップショット
	group        singleflight.Group // 同一言語への同時翻訳要求をまとめる
	translator   Translator
	language     string // 現在表示中の言語コード
}

// NewPosterSession は翻訳ゲートウェイを注入して空のセッションを生成します。
func NewPosterSession(translator Translator) (*PosterSession, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	return &PosterSession{
		translations: gocache.New(gocache.NoExpiration, 0),
		translator:   translator,
	}, nil
}

// Assemble は構造化メタデータと挿絵付き区画を1つのドキュメントに統合し、
// current と original の両方に据えて、原文言語のキャッシュを種として登録します。
// 以前の運転の状態はすべて破棄されます。
func (s *PosterSession) Assemble(structured domain.StructuredContent, imagedSections []domain.Section) domain.PosterDocument {
	doc := domain.PosterDocument{
		Title:       structured.Title,
		PosterStyle: structured.PosterStyle,
		Layout:      domain.NormalizeLayout(structured.Layout),
		Sections:    imagedSections,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := doc.Clone()
	original := doc.Clone()
	s.current = &current
	s.original = &original
	s.translations.Flush()
	s.translations.Set(OriginalLanguage, doc.Clone(), gocache.NoExpiration)
	s.language = OriginalLanguage

	return doc.Clone()
}

// Reset はセッションを初期状態（ドキュメント無し）に戻します。
func (s *PosterSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.original = nil
	s.translations.Flush()
	s.language = ""
}

// Current は編集中ドキュメントの読み取り専用スナップショットを返します。
// まだ存在しない場合は nil を返します。
func (s *PosterSession) Current() *domain.PosterDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := s.current.Clone()
	return &copied
}

// Original は生成直後の不変スナップショットを返します。無ければ nil です。
func (s *PosterSession) Original() *domain.PosterDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return nil
	}
	copied := s.original.Clone()
	return &copied
}

// Language は現在表示中の言語コードを返します。
func (s *PosterSession) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// EditField は current の対象フィールドだけを書き換えます。
// original とキャッシュ済み翻訳には決して触れません。ドキュメント未設定や
// 範囲外の区画番号は致命的エラーではなく無害な競合（古い非同期コールバックが
// 新しい運転のあとに届いた等）とみなし、黙って何もしません。
func (s *PosterSession) EditField(target Target, newValue string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}

	switch target.Field {
	case FieldTitle:
		s.current.Title = newValue
	case FieldHeading, FieldText:
		if target.SectionIndex < 0 || target.SectionIndex >= len(s.current.Sections) {
			slog.Warn("範囲外の区画への編集を無視したのだ", "index", target.SectionIndex)
			return
		}
		if target.Field == FieldHeading {
			s.current.Sections[target.SectionIndex].Heading = newValue
		} else {
			s.current.Sections[target.SectionIndex].Text = newValue
		}
	}
}

// ReplaceImage は current の指定区画の挿絵だけを差し替えます。
// 無効な区画番号は EditField と同じ規律で黙って無視します。
func (s *PosterSession) ReplaceImage(sectionIndex int, newImageURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	if sectionIndex < 0 || sectionIndex >= len(s.current.Sections) {
		slog.Warn("範囲外の区画への画像差し替えを無視したのだ", "index", sectionIndex)
		return
	}
	s.current.Sections[sectionIndex].ImageURL = newImageURI
}

// ToggleLanguage は表示言語を切り替えます。キャッシュ済みならリモート呼び出しなしで
// 即座に返し、未翻訳なら original を元に翻訳してキャッシュします。
// 翻訳は常に original から導出され、生成後の編集は反映されません。
// キャッシュは編集によって無効化されません。
func (s *PosterSession) ToggleLanguage(ctx context.Context, languageCode string) (domain.PosterDocument, error) {
	s.mu.Lock()
	if s.original == nil {
		s.mu.Unlock()
		return domain.PosterDocument{}, ErrNoDocument
	}

	if cached, found := s.translations.Get(languageCode); found {
		doc := cached.(domain.PosterDocument)
		snapshot := doc.Clone()
		s.current = &snapshot
		s.language = languageCode
		s.mu.Unlock()
		return doc.Clone(), nil
	}

	source := s.original.Clone()
	s.mu.Unlock()

	// 同じ言語への同時要求は1回のリモート呼び出しにまとめるのだ
	v, err, _ := s.group.Do(languageCode, func() (any, error) {
		translated, err := s.translator.TranslateDocument(ctx, source, LanguageName(languageCode))
		if err != nil {
			return nil, err
		}
		return mergeTranslation(source, translated), nil
	})
	if err != nil {
		// 失敗してもそれまでの current には一切触れない
		return domain.PosterDocument{}, err
	}

	merged := v.(domain.PosterDocument)

	s.mu.Lock()
	s.translations.Set(languageCode, merged.Clone(), gocache.NoExpiration)
	snapshot := merged.Clone()
	s.current = &snapshot
	s.language = languageCode
	s.mu.Unlock()

	return merged.Clone(), nil
}

// CachedTranslation はテストと診断用に、キャッシュ済み翻訳のスナップショットを返します。
func (s *PosterSession) CachedTranslation(languageCode string) (domain.PosterDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, found := s.translations.Get(languageCode)
	if !found {
		return domain.PosterDocument{}, false
	}
	return cached.(domain.PosterDocument).Clone(), true
}

// mergeTranslation は翻訳されたテキストを original の構造コピーに重ねます。
// posterStyle・layout・挿絵プロンプト・画像は original の値を保持し、
// 翻訳レスポンスに対応要素が無い区画は原文のまま残します。
func mergeTranslation(source domain.PosterDocument, translated domain.TranslatedContent) domain.PosterDocument {
	merged := source.Clone()
	if translated.Title != "" {
		merged.Title = translated.Title
	}
	for i := range merged.Sections {
		if i >= len(translated.Sections) {
			break
		}
		if h := translated.Sections[i].Heading; h != "" {
			merged.Sections[i].Heading = h
		}
		if t := translated.Sections[i].Text; t != "" {
			merged.Sections[i].Text = t
		}
	}
	return merged
}
