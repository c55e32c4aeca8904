package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/go-poster-kit/pkg/director"
	"github.com/shouni/go-poster-kit/pkg/domain"
	"github.com/shouni/go-poster-kit/pkg/gateway"
	"github.com/shouni/go-poster-kit/pkg/runner"
	"github.com/shouni/go-poster-kit/pkg/session"
)

// State は生成運転の状態機械の状態です。
type State string

const (
	StateIdle         State = "idle"
	StateStructuring  State = "structuring"
	StateIllustrating State = "illustrating"
	StateAssembling   State = "assembling"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// Op は Ready 状態の中で独立に実行できるサブ操作の種別です。
// それぞれが自分専用のビジーフラグとエラースロットを持ち、互いをブロックしません。
type Op string

const (
	OpTranslate       Op = "translate"
	OpRegenerateText  Op = "regenerate_text"
	OpRegenerateImage Op = "regenerate_image"
	OpEditImage       Op = "edit_image"
)

var (
	// ErrValidation は入力テキストが空または空白のみの場合。
	ErrValidation = errors.New("ポスターを生成するための情報を入力してください")
	// ErrRunInFlight は生成運転の進行中に新しい運転を要求した場合。
	// 走行中ドキュメントへの迷子コールバック混入を防ぐため、明示的に拒否します。
	ErrRunInFlight = errors.New("生成運転がすでに進行中です")
	// ErrNotReady はドキュメントが無い状態でサブ操作を要求した場合。
	ErrNotReady = errors.New("ポスターがまだ準備できていません")
	// ErrOpBusy は同種のサブ操作がすでに実行中の場合。
	ErrOpBusy = errors.New("この操作はすでに実行中です")
)

// 進捗のチェックポイント。構造化で30%まで進み、挿絵生成が30〜95%を埋める。
const (
	progressStructuring  = 15.0
	progressIllustration = 30.0
	progressSpanImages   = 65.0
	progressAssembling   = 100.0
)

// ImageOrchestrator は全区画の挿絵生成を束ねる runner の抽象です。
type ImageOrchestrator interface {
	GenerateAll(ctx context.Context, sections []domain.Section, style string, onProgress runner.ProgressFunc) ([]domain.Section, error)
}

// Controller は生成パイプライン全体を駆動する状態機械です。
// Idle → Structuring → Illustrating → Assembling → Ready と遷移し、
// どの状態からも失敗時は Failed に落ちます。Ready の中のサブ操作は
// 状態を離れずに、個別のビジーフラグで並走します。
type Controller struct {
	gw     gateway.Gateway
	sess   *session.PosterSession
	images ImageOrchestrator

	mu       sync.Mutex
	state    State
	progress float64
	step     string
	runErr   error
	opBusy   map[Op]bool
	opErr    map[Op]error
	layout   string
	palette  director.Palette
}

// NewController は依存関係を注入して Idle 状態のコントローラーを生成します。
func NewController(gw gateway.Gateway, sess *session.PosterSession, images ImageOrchestrator) (*Controller, error) {
	if gw == nil {
		return nil, fmt.Errorf("gw (gateway.Gateway) is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("sess (session.PosterSession) is required")
	}
	if images == nil {
		return nil, fmt.Errorf("images (ImageOrchestrator) is required")
	}
	return &Controller{
		gw:     gw,
		sess:   sess,
		images: images,
		state:  StateIdle,
		opBusy: make(map[Op]bool),
		opErr:  make(map[Op]error),
	}, nil
}

// StartGenerate は1回の生成運転（構造化→挿絵→組み立て）を最後まで実行します。
// 空入力は ErrValidation、進行中の二重要求は ErrRunInFlight で拒否します。
// 失敗時は Failed に遷移し、部分的なドキュメントは一切公開されません。
func (c *Controller) StartGenerate(ctx context.Context, rawText, mode string) error {
	if strings.TrimSpace(rawText) == "" {
		return ErrValidation
	}

	if err := c.beginRun(); err != nil {
		return err
	}

	slog.Info("ポスター生成運転を開始するのだ", "mode", mode)

	structured, err := c.gw.StructureContent(ctx, rawText, mode)
	if err != nil {
		c.failRun(err)
		return err
	}

	c.setPhase(StateIllustrating, progressIllustration, "挿絵を生成しています...")

	onProgress := func(completed, total int) {
		ratio := float64(completed) / float64(total)
		c.setPhase(StateIllustrating,
			progressIllustration+progressSpanImages*ratio,
			fmt.Sprintf("挿絵を生成しています... (%d/%d)", completed, total))
	}

	imaged, err := c.images.GenerateAll(ctx, structured.Sections, structured.PosterStyle, onProgress)
	if err != nil {
		c.failRun(err)
		return err
	}

	c.setPhase(StateAssembling, progressAssembling, "ポスターを組み立てています...")
	doc := c.sess.Assemble(structured, imaged)

	c.mu.Lock()
	c.state = StateReady
	c.progress = 0
	c.step = ""
	c.layout = doc.Layout
	c.palette = director.MatchPalette(doc.PosterStyle)
	c.mu.Unlock()

	slog.Info("ポスター生成運転が完了したのだ", "sections", len(doc.Sections), "layout", doc.Layout)
	return nil
}

// beginRun は運転開始の前処理。二重起動を弾き、前回の状態をすべて破棄するのだ。
func (c *Controller) beginRun() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateStructuring, StateIllustrating, StateAssembling:
		return ErrRunInFlight
	}

	c.sess.Reset()
	c.state = StateStructuring
	c.progress = progressStructuring
	c.step = "コンテンツを解析・構造化しています..."
	c.runErr = nil
	c.opBusy = make(map[Op]bool)
	c.opErr = make(map[Op]error)
	c.layout = ""
	c.palette = director.Palette{}
	return nil
}

// failRun は運転を Failed で終了させる。セッションは運転開始時にリセット済みなので、
// 初回運転の失敗後にドキュメントが見えることはない。
func (c *Controller) failRun(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateFailed
	c.progress = 0
	c.step = ""
	c.runErr = err
	slog.Error("生成運転が失敗したのだ", "error", err)
}

func (c *Controller) setPhase(state State, progress float64, step string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.progress = progress
	c.step = step
}

// ToggleLanguage は表示言語を切り替えます。Ready のまま実行され、
// 失敗しても他のサブ操作とドキュメントには影響しません。
func (c *Controller) ToggleLanguage(ctx context.Context, languageCode string) (domain.PosterDocument, error) {
	if err := c.beginOp(OpTranslate); err != nil {
		return domain.PosterDocument{}, err
	}
	defer c.endOp(OpTranslate)

	doc, err := c.sess.ToggleLanguage(ctx, languageCode)
	if err != nil {
		c.recordOpErr(OpTranslate, err)
		return domain.PosterDocument{}, err
	}
	return doc, nil
}

// EditField は対象フィールドをローカルに書き換えます。リモート呼び出しは無く、
// ビジーフラグも使いません。
func (c *Controller) EditField(target session.Target, newValue string) {
	c.sess.EditField(target, newValue)
}

// RegenerateText は対象フィールドの現在値を AI に書き直させ、結果を反映します。
func (c *Controller) RegenerateText(ctx context.Context, target session.Target, contextLabel string) (string, error) {
	if err := c.beginOp(OpRegenerateText); err != nil {
		return "", err
	}
	defer c.endOp(OpRegenerateText)

	text, ok := c.fieldValue(target)
	if !ok {
		c.recordOpErr(OpRegenerateText, ErrNotReady)
		return "", ErrNotReady
	}

	rewritten, err := c.gw.RewriteText(ctx, text, contextLabel)
	if err != nil {
		c.recordOpErr(OpRegenerateText, err)
		return "", err
	}

	c.sess.EditField(target, rewritten)
	return rewritten, nil
}

// RegenerateImage は区画の挿絵プロンプトから画像を作り直して差し替えます。
func (c *Controller) RegenerateImage(ctx context.Context, sectionIndex int) (string, error) {
	if err := c.beginOp(OpRegenerateImage); err != nil {
		return "", err
	}
	defer c.endOp(OpRegenerateImage)

	doc := c.sess.Current()
	if doc == nil || sectionIndex < 0 || sectionIndex >= len(doc.Sections) {
		c.recordOpErr(OpRegenerateImage, ErrNotReady)
		return "", ErrNotReady
	}

	imageURL, err := c.gw.GenerateImage(ctx, doc.Sections[sectionIndex].IllustrationPrompt, doc.PosterStyle)
	if err != nil {
		c.recordOpErr(OpRegenerateImage, err)
		return "", err
	}

	c.sess.ReplaceImage(sectionIndex, imageURL)
	return imageURL, nil
}

// EditSectionImage は既存の挿絵を自由文の指示で編集して差し替えます。
func (c *Controller) EditSectionImage(ctx context.Context, sectionIndex int, instruction string) (string, error) {
	if err := c.beginOp(OpEditImage); err != nil {
		return "", err
	}
	defer c.endOp(OpEditImage)

	doc := c.sess.Current()
	if doc == nil || sectionIndex < 0 || sectionIndex >= len(doc.Sections) {
		c.recordOpErr(OpEditImage, ErrNotReady)
		return "", ErrNotReady
	}

	edited, err := c.gw.EditImage(ctx, doc.Sections[sectionIndex].ImageURL, instruction)
	if err != nil {
		c.recordOpErr(OpEditImage, err)
		return "", err
	}

	c.sess.ReplaceImage(sectionIndex, edited)
	return edited, nil
}

// SelectLayout は表示レイアウトを切り替えます。一覧外の値は丸められます。
func (c *Controller) SelectLayout(layout string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout = domain.NormalizeLayout(layout)
}

// SelectPalette は配色を名前で切り替えます。
func (c *Controller) SelectPalette(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.palette = director.FindPalette(name)
}

// beginOp は同種サブ操作の二重起動を防ぎつつ、前回のエラースロットを掃除するのだ。
func (c *Controller) beginOp(op Op) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	if c.opBusy[op] {
		return ErrOpBusy
	}
	c.opBusy[op] = true
	delete(c.opErr, op)
	return nil
}

func (c *Controller) endOp(op Op) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opBusy[op] = false
}

func (c *Controller) recordOpErr(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opErr[op] = err
}

// fieldValue は対象フィールドの現在値を取り出すのだ。
func (c *Controller) fieldValue(target session.Target) (string, bool) {
	doc := c.sess.Current()
	if doc == nil {
		return "", false
	}
	switch target.Field {
	case session.FieldTitle:
		return doc.Title, true
	case session.FieldHeading, session.FieldText:
		if target.SectionIndex < 0 || target.SectionIndex >= len(doc.Sections) {
			return "", false
		}
		if target.Field == session.FieldHeading {
			return doc.Sections[target.SectionIndex].Heading, true
		}
		return doc.Sections[target.SectionIndex].Text, true
	}
	return "", false
}

// --- 読み取り専用アクセサ ---

// State は現在の状態を返します。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress は進捗率（0〜100）を返します。Ready 到達後は 0 に戻ります。
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Step は現在の工程の説明文を返します。
func (c *Controller) Step() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Err は直近の運転が Failed で終わった場合のエラーを返します。
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

// OpBusy は指定サブ操作が実行中かを返します。
func (c *Controller) OpBusy(op Op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opBusy[op]
}

// OpErr は指定サブ操作の直近のエラーを返します。成功すれば掃除されます。
func (c *Controller) OpErr(op Op) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opErr[op]
}

// Document は現在のドキュメントの読み取り専用スナップショットを返します。
func (c *Controller) Document() *domain.PosterDocument {
	return c.sess.Current()
}

// Palette は現在選択中の配色を返します。
func (c *Controller) Palette() director.Palette {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.palette
}

// Layout は現在選択中のレイアウトを返します。
func (c *Controller) Layout() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

// Language は現在表示中の言語コードを返します。
func (c *Controller) Language() string {
	return c.sess.Language()
}
