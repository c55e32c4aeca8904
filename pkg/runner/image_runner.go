package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/shouni/go-poster-kit/pkg/domain"
	"github.com/shouni/go-poster-kit/pkg/gateway"
)

// デフォルトのリトライ・スロットリング設定なのだ
const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 1 * time.Second
	DefaultJitterBound    = 1 * time.Second
	DefaultInterItemDelay = 2 * time.Second
)

// ProgressFunc は1区画の挿絵が完成するたびに呼ばれる進捗通知なのだ。
// completed は 1 から total まで厳密に単調増加する。
type ProgressFunc func(completed, total int)

// ImageGenerator は runner が必要とする画像生成操作だけを切り出したインターフェースです。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, style string) (string, error)
}

// RetryPolicy は1回の画像生成呼び出しに適用するリトライ方針です。
type RetryPolicy struct {
	MaxAttempts int                  // 総試行回数の上限（リトライ込み）
	BaseDelay   time.Duration        // 指数退避の基準となる遅延
	JitterBound time.Duration        // 退避に加算するジッタの上限（[0, JitterBound)）
	Retryable   func(err error) bool // リトライしてよいエラーの判定
}

// DefaultRetryPolicy は既定の方針（3回・指数退避1s基準・ジッタ1s・429のみ）を返します。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		JitterBound: DefaultJitterBound,
		Retryable:   gateway.IsRateLimit,
	}
}

// Backoff は attempt 回目（1始まり）の失敗後に待つべき時間を返します。
// (2^attempt) * BaseDelay + jitter[0, JitterBound) の指数退避なのだ。
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := time.Duration(1<<attempt) * p.BaseDelay
	if p.JitterBound > 0 {
		delay += rand.N(p.JitterBound)
	}
	return delay
}

// PosterImageRunner は、全区画の挿絵生成を厳密に逐次実行する実体です。
// リモートの画像APIは流量制限に敏感なため、並列化はあえて行いません。
type PosterImageRunner struct {
	generator ImageGenerator // 画像生成AIへのゲートウェイ
	policy    RetryPolicy    // 1枚ごとのリトライ方針
	interval  time.Duration  // 区画と区画の間に空ける固定インターバル

	// sleep と throttle はテストで差し替えるためのフックなのだ
	sleep    func(ctx context.Context, d time.Duration) error
	throttle func(ctx context.Context) error
}

// NewPosterImageRunner は、依存関係を注入して PosterImageRunner を生成して返すのだ。
func NewPosterImageRunner(generator ImageGenerator, policy RetryPolicy) (*PosterImageRunner, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator (ImageGenerator) is required")
	}
	if policy.MaxAttempts <= 0 {
		return nil, fmt.Errorf("policy.MaxAttempts は1以上が必要です")
	}
	if policy.Retryable == nil {
		policy.Retryable = gateway.IsRateLimit
	}

	r := &PosterImageRunner{
		generator: generator,
		policy:    policy,
		interval:  DefaultInterItemDelay,
		sleep:     sleepContext,
	}
	// 間隔は前の区画の完了時点から数える。生成にかかった時間で縮んではいけない。
	r.throttle = func(ctx context.Context) error {
		return r.sleep(ctx, r.interval)
	}
	return r, nil
}

// GenerateAll は区画リストを順番に処理し、挿絵付きの新しいリストを返すのだ。
// どれか1枚でも失敗したら全体を即座に打ち切る（画像の欠けたポスターは成果物として
// 意味がないため、部分的な結果は返さない）。
func (r *PosterImageRunner) GenerateAll(ctx context.Context, sections []domain.Section, style string, onProgress ProgressFunc) ([]domain.Section, error) {
	total := len(sections)
	slog.Info("挿絵の逐次生成を開始するのだ", "count", total, "interval", DefaultInterItemDelay)

	result := make([]domain.Section, 0, total)
	for i, section := range sections {
		// 2区画目以降は、流量制限を踏まないための自発的な間隔を空けるのだ
		if i > 0 {
			if err := r.throttle(ctx); err != nil {
				return nil, fmt.Errorf("スロットリング待機が中断されました: %w", err)
			}
		}

		imageURL, err := r.generateWithRetry(ctx, section.IllustrationPrompt, style)
		if err != nil {
			slog.Error("挿絵の生成に失敗したのだ", "section", i+1, "error", err)
			return nil, fmt.Errorf("区画 %d の挿絵生成に失敗しました: %w", i+1, err)
		}

		withImage := section
		withImage.ImageURL = imageURL
		result = append(result, withImage)

		if onProgress != nil {
			onProgress(i+1, total)
		}
		slog.Info("挿絵の生成に成功したのだ", "section", i+1, "total", total)
	}

	return result, nil
}

// generateWithRetry は方針に従って1枚分の生成をリトライ付きで実行するのだ。
// リトライしてよいのは流量制限と分類されたエラーだけで、それ以外は即座に返す。
func (r *PosterImageRunner) generateWithRetry(ctx context.Context, prompt, style string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		imageURL, err := r.generator.GenerateImage(ctx, prompt, style)
		if err == nil {
			return imageURL, nil
		}
		lastErr = err

		if !r.policy.Retryable(err) || attempt == r.policy.MaxAttempts {
			return "", err
		}

		delay := r.policy.Backoff(attempt)
		slog.Warn("流量制限を検知したのでリトライするのだ",
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"prompt", prompt)

		if err := r.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("リトライ待機が中断されました: %w", err)
		}
	}
	return "", lastErr
}

// sleepContext は context のキャンセルを尊重するスリープなのだ。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
