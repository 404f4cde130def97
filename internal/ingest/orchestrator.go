// Package ingest は記事URLのバッチ取り込み（取得→抽出→分類→重複排除保存）を提供する。
// 1件の失敗はそのURLの結果として記録され、バッチ全体は中断しない。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/articlelens/internal/classify"
	"github.com/hitoshi/articlelens/internal/metrics"
	"github.com/hitoshi/articlelens/internal/model"
	"github.com/hitoshi/articlelens/internal/scrape"
)

// MessageAlreadyExists は既存記事を返した場合の結果メッセージ。
const MessageAlreadyExists = "Article already exists"

// ArticleStore は取り込みに必要な記事永続化操作。
type ArticleStore interface {
	FindBySourceURL(ctx context.Context, sourceURL string) (*model.Article, error)
	UpsertByURL(ctx context.Context, article *model.Article) (string, bool, error)
}

// PageFetcher は記事ページの取得インターフェース。
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*scrape.Document, error)
}

// ArticleClassifier は本文の分類インターフェース。常に結果を返す。
type ArticleClassifier interface {
	Classify(ctx context.Context, text string) classify.Result
}

// TextSanitizer は保存前のテキスト正規化インターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Report はバッチ取り込みの結果。Resultsは入力URLと同じ順序・同じ件数。
type Report struct {
	Processed int
	Results   []model.ScrapeOutcome
}

// SucceededCount は成功したURLの件数を返す。
func (r Report) SucceededCount() int {
	n := 0
	for _, o := range r.Results {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Options はOrchestratorの動作設定。
type Options struct {
	// MaxConcurrent は同時に処理するURL数。1以下で逐次処理。
	MaxConcurrent int
}

// Orchestrator はURLのバッチ取り込みを行う。
type Orchestrator struct {
	store         ArticleStore
	fetcher       PageFetcher
	classifier    ArticleClassifier
	sanitizer     TextSanitizer
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
	maxConcurrent int
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成する。
// collectorはnilでもよい。
func NewOrchestrator(
	store ArticleStore,
	fetcher PageFetcher,
	classifier ArticleClassifier,
	sanitizer TextSanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	opts Options,
) *Orchestrator {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		store:         store,
		fetcher:       fetcher,
		classifier:    classifier,
		sanitizer:     sanitizer,
		metrics:       collector,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// Ingest はURLのリストを取り込み、URLごとの結果を入力順で返す。
// 個々のURLの失敗（取得失敗、保存失敗、panic）はそのURLのエラー結果となり、他のURLの処理は継続する。
func (o *Orchestrator) Ingest(ctx context.Context, urls []string) Report {
	start := time.Now()
	batchID := uuid.New().String()
	results := make([]model.ScrapeOutcome, len(urls))

	if o.maxConcurrent == 1 {
		for i, u := range urls {
			results[i] = o.process(ctx, batchID, u)
		}
	} else {
		// semaphoreパターンで並列数を制御し、結果は入力位置に書き込む
		sem := make(chan struct{}, o.maxConcurrent)
		var wg sync.WaitGroup
		for i, u := range urls {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, u string) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = o.process(ctx, batchID, u)
			}(i, u)
		}
		wg.Wait()
	}

	report := Report{Processed: len(results), Results: results}
	o.logger.Info("バッチ取り込みが完了しました",
		slog.String("batch_id", batchID),
		slog.Int("processed", report.Processed),
		slog.Int("succeeded", report.SucceededCount()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return report
}

// process は1件のURLを処理して結果を返す。
func (o *Orchestrator) process(ctx context.Context, batchID, rawURL string) (outcome model.ScrapeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = o.fail(batchID, rawURL, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return o.fail(batchID, rawURL, err)
	}

	// 既存記事があれば取得・分類を行わずに返す
	existing, err := o.store.FindBySourceURL(ctx, rawURL)
	if err != nil {
		return o.fail(batchID, rawURL, err)
	}
	if existing != nil {
		return o.succeed(batchID, rawURL, existing.ID, false)
	}

	doc, err := o.fetch(ctx, rawURL)
	if err != nil {
		return o.fail(batchID, rawURL, err)
	}

	extracted := scrape.Extract(doc.Body)
	result := o.classify(ctx, extracted.Body)

	article := o.buildArticle(rawURL, extracted, result)
	id, created, err := o.store.UpsertByURL(ctx, article)
	if err != nil {
		return o.fail(batchID, rawURL, err)
	}
	if created && o.metrics != nil {
		o.metrics.RecordArticleCreated()
	}
	return o.succeed(batchID, rawURL, id, created)
}

// fetch はページを取得し、レイテンシとHTTPステータスを記録する。
func (o *Orchestrator) fetch(ctx context.Context, rawURL string) (*scrape.Document, error) {
	start := time.Now()
	doc, err := o.fetcher.Fetch(ctx, rawURL)
	if o.metrics != nil {
		o.metrics.RecordFetchLatency(time.Since(start))
		status := 0
		var fetchErr *scrape.FetchError
		switch {
		case err == nil:
			status = doc.StatusCode
		case errors.As(err, &fetchErr):
			status = fetchErr.StatusCode
		}
		o.metrics.RecordHTTPStatus(status)
	}
	return doc, err
}

// classify は本文を分類し、レイテンシと利用不可を記録する。
func (o *Orchestrator) classify(ctx context.Context, body string) classify.Result {
	start := time.Now()
	result := o.classifier.Classify(ctx, body)
	if o.metrics != nil {
		o.metrics.RecordClassifyLatency(time.Since(start))
		if !result.Available() {
			o.metrics.RecordClassifyUnavailable()
		}
	}
	return result
}

// buildArticle は抽出・分類結果から保存する記事を組み立てる。
// 本文はテキストノードから抽出済みのため、本文中に引用されたタグ表記はそのまま残す。
// 分類が利用できない場合、カテゴリ・要約・感情はNULLのまま保存する。
// カテゴリと感情は列の最大長に切り詰める。
func (o *Orchestrator) buildArticle(rawURL string, extracted scrape.Extracted, result classify.Result) *model.Article {
	title := o.sanitizer.Sanitize(extracted.Title)
	if title == "" {
		title = scrape.NoTitle
	}
	article := &model.Article{
		Title:     title,
		Content:   extracted.Body,
		SourceURL: rawURL,
	}
	if result.Available() {
		summary := o.sanitizer.Sanitize(result.Summary)
		category := model.TruncateRunes(o.sanitizer.Sanitize(result.Category), model.MaxCategoryLength)
		sentiment := model.TruncateRunes(o.sanitizer.Sanitize(result.Sentiment), model.MaxSentimentLength)
		article.Category = model.StringPtr(category)
		article.Summary = &summary
		article.Sentiment = model.StringPtr(sentiment)
	}
	return article
}

func (o *Orchestrator) succeed(batchID, rawURL, articleID string, created bool) model.ScrapeOutcome {
	outcome := model.ScrapeOutcome{
		URL:       rawURL,
		Status:    model.OutcomeSuccess,
		ArticleID: articleID,
		Created:   created,
	}
	if !created {
		outcome.Message = MessageAlreadyExists
	}
	if o.metrics != nil {
		o.metrics.RecordOutcome(string(model.OutcomeSuccess))
	}
	o.logger.Info("記事を取り込みました",
		slog.String("batch_id", batchID),
		slog.String("url", rawURL),
		slog.String("status", string(outcome.Status)),
		slog.String("article_id", articleID),
		slog.Bool("created", created),
	)
	return outcome
}

func (o *Orchestrator) fail(batchID, rawURL string, err error) model.ScrapeOutcome {
	if o.metrics != nil {
		o.metrics.RecordOutcome(string(model.OutcomeError))
	}
	o.logger.Warn("記事の取り込みに失敗しました",
		slog.String("batch_id", batchID),
		slog.String("url", rawURL),
		slog.String("status", string(model.OutcomeError)),
		slog.String("error", err.Error()),
	)
	return model.ScrapeOutcome{
		URL:     rawURL,
		Status:  model.OutcomeError,
		Message: err.Error(),
	}
}
