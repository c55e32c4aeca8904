package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shouni/go-poster-kit/pkg/domain"
	"github.com/shouni/go-poster-kit/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// mockGenerator は呼び出しごとに scripted の先頭からエラーを返すのだ。
// scripted を使い切ったら成功を返す。
type mockGenerator struct {
	scripted []error
	calls    int
	prompts  []string
}

func (m *mockGenerator) GenerateImage(ctx context.Context, prompt, style string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if len(m.scripted) > 0 {
		err := m.scripted[0]
		m.scripted = m.scripted[1:]
		if err != nil {
			return "", err
		}
	}
	return gateway.FormatDataURI("image/png", []byte(fmt.Sprintf("img-%d", m.calls))), nil
}

func rateLimitErr() error {
	return fmt.Errorf("%w: %w", gateway.ErrImageGeneration, genai.APIError{Code: 429, Message: "quota"})
}

// newTestRunner は実時間を待たないスリープとスロットルを差し込んだ runner を作るのだ。
func newTestRunner(t *testing.T, gen ImageGenerator) (*PosterImageRunner, *[]time.Duration, *int) {
	t.Helper()
	r, err := NewPosterImageRunner(gen, DefaultRetryPolicy())
	require.NoError(t, err)

	slept := &[]time.Duration{}
	throttled := new(int)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	r.throttle = func(ctx context.Context) error {
		*throttled++
		return nil
	}
	return r, slept, throttled
}

func makeSections(n int) []domain.Section {
	sections := make([]domain.Section, 0, n)
	for i := 0; i < n; i++ {
		sections = append(sections, domain.Section{
			Heading:            fmt.Sprintf("h%d", i),
			Text:               fmt.Sprintf("t%d", i),
			IllustrationPrompt: fmt.Sprintf("p%d", i),
		})
	}
	return sections
}

func TestPosterImageRunner_GenerateAll(t *testing.T) {
	ctx := context.Background()

	t.Run("全区画が順番どおりに挿絵付きで返る", func(t *testing.T) {
		gen := &mockGenerator{}
		r, _, throttled := newTestRunner(t, gen)

		result, err := r.GenerateAll(ctx, makeSections(4), "Grid style", nil)

		require.NoError(t, err)
		require.Len(t, result, 4)
		for i, sec := range result {
			assert.Equal(t, fmt.Sprintf("h%d", i), sec.Heading, "順序が保たれるべき")
			assert.NotEmpty(t, sec.ImageURL)
		}
		assert.Equal(t, []string{"p0", "p1", "p2", "p3"}, gen.prompts, "厳密な逐次処理であるべき")
		assert.Equal(t, 3, *throttled, "最初の区画の前ではスロットルしない")
	})

	t.Run("区画間には完了基準で固定2秒の間隔が入る", func(t *testing.T) {
		gen := &mockGenerator{}
		r, err := NewPosterImageRunner(gen, DefaultRetryPolicy())
		require.NoError(t, err)

		// throttle は既定のまま、sleep だけ記録用に差し替えて既定経路を検証する
		var slept []time.Duration
		r.sleep = func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}

		result, err := r.GenerateAll(ctx, makeSections(3), "s", nil)

		require.NoError(t, err)
		require.Len(t, result, 3)
		// 2区画目と3区画目の前にそれぞれ満額の2秒。初回トークンで即通過してはいけない
		assert.Equal(t, []time.Duration{DefaultInterItemDelay, DefaultInterItemDelay}, slept)
	})

	t.Run("進捗は区画ごとに1回ずつ厳密増加で通知される", func(t *testing.T) {
		gen := &mockGenerator{}
		r, _, _ := newTestRunner(t, gen)

		type call struct{ completed, total int }
		var calls []call
		_, err := r.GenerateAll(ctx, makeSections(4), "s", func(completed, total int) {
			calls = append(calls, call{completed, total})
		})

		require.NoError(t, err)
		require.Len(t, calls, 4)
		for i, c := range calls {
			assert.Equal(t, i+1, c.completed)
			assert.Equal(t, 4, c.total)
			assert.LessOrEqual(t, c.completed, c.total)
		}
	})

	t.Run("元の区画スライスは書き換えられない", func(t *testing.T) {
		gen := &mockGenerator{}
		r, _, _ := newTestRunner(t, gen)
		sections := makeSections(3)

		_, err := r.GenerateAll(ctx, sections, "s", nil)

		require.NoError(t, err)
		for _, sec := range sections {
			assert.Empty(t, sec.ImageURL, "入力側のコピーに画像が書き込まれてはいけない")
		}
	})

	t.Run("流量制限2回のあと成功なら退避2回で成功する", func(t *testing.T) {
		gen := &mockGenerator{scripted: []error{rateLimitErr(), rateLimitErr(), nil}}
		r, slept, _ := newTestRunner(t, gen)

		result, err := r.GenerateAll(ctx, makeSections(1), "s", nil)

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 3, gen.calls)

		require.Len(t, *slept, 2)
		// 1回目の退避: [2000, 3000) ms
		assert.GreaterOrEqual(t, (*slept)[0], 2000*time.Millisecond)
		assert.Less(t, (*slept)[0], 3000*time.Millisecond)
		// 2回目の退避: [4000, 5000) ms
		assert.GreaterOrEqual(t, (*slept)[1], 4000*time.Millisecond)
		assert.Less(t, (*slept)[1], 5000*time.Millisecond)
	})

	t.Run("流量制限3連続ならちょうど3回試行して失敗する", func(t *testing.T) {
		gen := &mockGenerator{scripted: []error{rateLimitErr(), rateLimitErr(), rateLimitErr()}}
		r, slept, _ := newTestRunner(t, gen)

		_, err := r.GenerateAll(ctx, makeSections(2), "s", nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, gateway.ErrImageGeneration)
		assert.Equal(t, 3, gen.calls, "上限を超えて試行してはいけない")
		assert.Len(t, *slept, 2, "最後の失敗のあとに退避してはいけない")
	})

	t.Run("流量制限以外のエラーは即座に全体を打ち切る", func(t *testing.T) {
		fatal := fmt.Errorf("%w: safety block", gateway.ErrImageGeneration)
		gen := &mockGenerator{scripted: []error{nil, fatal}}
		r, slept, _ := newTestRunner(t, gen)

		var progressCalls int
		result, err := r.GenerateAll(ctx, makeSections(3), "s", func(completed, total int) {
			progressCalls++
		})

		require.Error(t, err)
		assert.Nil(t, result, "失敗時に部分的な結果を返してはいけない")
		assert.Equal(t, 2, gen.calls)
		assert.Equal(t, 1, progressCalls, "完了済みの区画の分だけ通知される")
		assert.Empty(t, *slept, "リトライ不能エラーで退避してはいけない")
	})

	t.Run("区画ゼロなら何もせず空リストを返す", func(t *testing.T) {
		gen := &mockGenerator{}
		r, _, throttled := newTestRunner(t, gen)

		result, err := r.GenerateAll(ctx, nil, "s", func(completed, total int) {
			t.Error("進捗が呼ばれてはいけない")
		})

		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Zero(t, gen.calls)
		assert.Zero(t, *throttled)
	})

	t.Run("スロットル待機中のキャンセルで中断される", func(t *testing.T) {
		gen := &mockGenerator{}
		r, _, _ := newTestRunner(t, gen)
		r.throttle = func(ctx context.Context) error {
			return context.Canceled
		}

		_, err := r.GenerateAll(ctx, makeSections(2), "s", nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	t.Run("指数退避とジッタの範囲を守る", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			d1 := policy.Backoff(1)
			assert.GreaterOrEqual(t, d1, 2*time.Second)
			assert.Less(t, d1, 3*time.Second)

			d2 := policy.Backoff(2)
			assert.GreaterOrEqual(t, d2, 4*time.Second)
			assert.Less(t, d2, 5*time.Second)
		}
	})

	t.Run("ジッタ無効なら純粋な指数退避になる", func(t *testing.T) {
		p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
		assert.Equal(t, 2*time.Second, p.Backoff(1))
		assert.Equal(t, 4*time.Second, p.Backoff(2))
	})
}

func TestNewPosterImageRunner(t *testing.T) {
	t.Run("generatorが無いと初期化できない", func(t *testing.T) {
		_, err := NewPosterImageRunner(nil, DefaultRetryPolicy())
		assert.Error(t, err)
	})

	t.Run("試行回数ゼロの方針は拒否する", func(t *testing.T) {
		_, err := NewPosterImageRunner(&mockGenerator{}, RetryPolicy{})
		assert.Error(t, err)
	})

	t.Run("Retryable未指定なら流量制限判定がデフォルトになる", func(t *testing.T) {
		r, err := NewPosterImageRunner(&mockGenerator{}, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second})
		require.NoError(t, err)
		assert.True(t, r.policy.Retryable(errors.New("Error 429")))
		assert.False(t, r.policy.Retryable(errors.New("boom")))
	})
}
