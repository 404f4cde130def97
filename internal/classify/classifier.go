package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable は分類サービスを利用できなかったことを示す。
// Result.Err にラップして返され、呼び出し元へpanicやエラーとして伝播しない。
var ErrUnavailable = errors.New("classification unavailable")

var (
	errNotConfigured = errors.New("classifier is not configured")
	errEmptyReply    = errors.New("empty model reply")
)

// Completer は1つのプロンプトに対して言語モデルの応答テキストを返すバックエンド。
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result は1回の分類結果。
// Errがnilの場合、Category と Sentiment は必ず非空で、Summary は空文字列の場合がある。
// Errが非nilの場合（ErrUnavailable をラップ）、各フィールドは空のまま。
type Result struct {
	Category  string
	Summary   string
	Sentiment string
	Err       error
}

// Available は分類結果が利用可能かを返す。
func (r Result) Available() bool {
	return r.Err == nil
}

// Options はClassifierの動作設定。
type Options struct {
	// Timeout は1回のモデル呼び出しの上限時間。
	Timeout time.Duration
	// MaxChars はプロンプトに埋め込む本文の最大文字数。
	MaxChars int
	// RatePerMin は1分あたりのモデル呼び出し上限。0以下で無制限。
	RatePerMin int
}

// Classifier は本文テキストを言語モデルで分類する。
// 失敗時もpanicせず、常にResultを返す。リトライは行わない。
type Classifier struct {
	completer Completer
	logger    *slog.Logger
	timeout   time.Duration
	maxChars  int
	limiter   *rate.Limiter
}

// NewClassifier はClassifierの新しいインスタンスを生成する。
// completerがnilの場合、本文のある分類要求はすべて利用不可として扱う。
func NewClassifier(completer Completer, logger *slog.Logger, opts Options) *Classifier {
	c := &Classifier{
		completer: completer,
		logger:    logger,
		timeout:   opts.Timeout,
		maxChars:  opts.MaxChars,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.maxChars <= 0 {
		c.maxChars = DefaultMaxChars
	}
	if opts.RatePerMin > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMin)), 1)
	}
	return c
}

// Classify は本文を分類する。
// 本文が空の場合はモデルを呼び出さずにデフォルト値を返す。
// 応答に欠けているフィールドは Other / "" / Neutral で補う。
// 通信失敗、タイムアウト、クォータ超過、空応答は ErrUnavailable として Result.Err に格納する。
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Category: DefaultCategory, Summary: "", Sentiment: DefaultSentiment}
	}
	if c.completer == nil {
		return c.unavailable(errNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.unavailable(fmt.Errorf("rate limiter: %w", err))
		}
	}

	reply, err := c.complete(ctx, BuildPrompt(text, c.maxChars))
	if err != nil {
		return c.unavailable(err)
	}
	if strings.TrimSpace(reply) == "" {
		return c.unavailable(errEmptyReply)
	}

	parsed := ParseResponse(reply)
	result := Result{
		Category:  DefaultCategory,
		Summary:   "",
		Sentiment: DefaultSentiment,
	}
	if parsed.Category != nil {
		result.Category = *parsed.Category
	}
	if parsed.Summary != nil {
		result.Summary = *parsed.Summary
	}
	if parsed.Sentiment != nil {
		result.Sentiment = *parsed.Sentiment
	}
	return result
}

// complete はバックエンドを呼び出す。バックエンドのpanicはエラーに変換する。
func (c *Classifier) complete(ctx context.Context, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panic: %v", r)
		}
	}()
	return c.completer.Complete(ctx, prompt)
}

func (c *Classifier) unavailable(cause error) Result {
	if c.logger != nil {
		c.logger.Warn("記事の分類に失敗しました",
			slog.String("error", cause.Error()),
		)
	}
	return Result{Err: fmt.Errorf("%w: %v", ErrUnavailable, cause)}
}
