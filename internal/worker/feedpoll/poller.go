// Package feedpoll は設定されたRSS/Atomフィードを定期的に取得し、
// 記事リンクを取り込みパイプラインへ渡すバックグラウンドワーカーを提供する。
package feedpoll

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/articlelens/internal/config"
	"github.com/hitoshi/articlelens/internal/ingest"
	"github.com/hitoshi/articlelens/internal/metrics"
)

const (
	userAgent       = "ArticleLens/1.0 Feed Poller"
	acceptHeader    = "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.8, */*;q=0.5"
	defaultMaxItems = 20
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Ingester は記事URLのバッチ取り込みインターフェース。
type Ingester interface {
	Ingest(ctx context.Context, urls []string) ingest.Report
}

// Options はPollerの動作設定。
type Options struct {
	Timeout     time.Duration
	MaxBodySize int64
	// MaxItems は1フィードあたり取り込む最大リンク数。0以下でデフォルト20。
	MaxItems int
}

// Poller は設定済みフィードのポーリングを行う。
type Poller struct {
	sources     []config.FeedSource
	ingester    Ingester
	ssrfGuard   SSRFValidator
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	maxItems    int
}

// NewPoller はPollerの新しいインスタンスを生成する。
// ssrfGuardとcollectorはnilでもよい。
func NewPoller(
	sources []config.FeedSource,
	ingester Ingester,
	ssrfGuard SSRFValidator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	opts Options,
) *Poller {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 5 * 1024 * 1024
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}
	return &Poller{
		sources:     sources,
		ingester:    ingester,
		ssrfGuard:   ssrfGuard,
		metrics:     collector,
		logger:      logger,
		timeout:     opts.Timeout,
		maxBodySize: opts.MaxBodySize,
		maxItems:    opts.MaxItems,
	}
}

// Start は指定間隔のティッカーでポーリングを開始する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("フィードポーラーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(p.sources)),
	)

	p.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("フィードポーラーを停止しました")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce は全フィードを1回ずつ取得し、記事リンクを取り込む。
// 失敗したフィードはログに記録してスキップし、戻り値は取り込みに渡したリンク数。
func (p *Poller) RunOnce(ctx context.Context) int {
	start := time.Now()
	total := 0

	for _, src := range p.sources {
		if ctx.Err() != nil {
			break
		}

		links, err := p.Poll(ctx, src.URL)
		if err != nil {
			p.logger.Error("フィードの取得に失敗しました",
				slog.String("feed_name", src.Name),
				slog.String("feed_url", src.URL),
				slog.String("error", err.Error()),
			)
			p.recordPoll(false)
			continue
		}
		p.recordPoll(true)

		if len(links) == 0 {
			p.logger.Info("フィードに新しいリンクはありません",
				slog.String("feed_name", src.Name),
			)
			continue
		}

		report := p.ingester.Ingest(ctx, links)
		total += len(links)
		p.logger.Info("フィードのリンクを取り込みました",
			slog.String("feed_name", src.Name),
			slog.Int("link_count", len(links)),
			slog.Int("succeeded", report.SucceededCount()),
		)
	}

	p.logger.Info("フィードポーリングが完了しました",
		slog.Int("feed_count", len(p.sources)),
		slog.Int("link_count", total),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return total
}

// Poll は1つのフィードURLを取得し、記事リンクを最大MaxItems件返す。
// HTMLページが返された場合はheadのalternateリンクからフィードを1回だけ辿る。
func (p *Poller) Poll(ctx context.Context, feedURL string) ([]string, error) {
	body, contentType, err := p.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	if isHTML(contentType) {
		discovered := DiscoverFeedURL(body, feedURL)
		if discovered == "" {
			return nil, fmt.Errorf("HTMLページからフィードを検出できません: %s", feedURL)
		}
		p.logger.Debug("HTMLページからフィードを検出しました",
			slog.String("page_url", feedURL),
			slog.String("feed_url", discovered),
		)
		body, _, err = p.get(ctx, discovered)
		if err != nil {
			return nil, err
		}
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	return p.collectLinks(parsed), nil
}

func (p *Poller) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if p.ssrfGuard != nil {
		if err := p.ssrfGuard.ValidateURL(rawURL); err != nil {
			return nil, "", fmt.Errorf("SSRF検証に失敗: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// collectLinks はフィード内の重複しない記事リンクを出現順に最大maxItems件返す。
func (p *Poller) collectLinks(feed *gofeed.Feed) []string {
	seen := make(map[string]struct{}, len(feed.Items))
	links := make([]string, 0, min(len(feed.Items), p.maxItems))
	for _, item := range feed.Items {
		if len(links) >= p.maxItems {
			break
		}
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

// httpClient はSSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (p *Poller) httpClient() *http.Client {
	if p.ssrfGuard != nil {
		return p.ssrfGuard.NewSafeClient(p.timeout, p.maxBodySize)
	}
	return &http.Client{Timeout: p.timeout}
}

func (p *Poller) recordPoll(success bool) {
	if p.metrics != nil {
		p.metrics.RecordFeedPoll(success)
	}
}

// DiscoverFeedURL はHTMLのheadからrel="alternate"のRSS/Atomリンクを探し、
// 絶対URLに解決して返す。Atomを優先し、見つからない場合は空文字を返す。
func DiscoverFeedURL(htmlBody []byte, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	var atom, rss string
	doc.Find(`head link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		resolved := resolveURL(base, strings.TrimSpace(href))
		if resolved == "" {
			return
		}
		switch strings.ToLower(strings.TrimSpace(s.AttrOr("type", ""))) {
		case "application/atom+xml":
			if atom == "" {
				atom = resolved
			}
		case "application/rss+xml":
			if rss == "" {
				rss = resolved
			}
		}
	})

	if atom != "" {
		return atom
	}
	return rss
}

func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.Contains(strings.ToLower(mediaType), "html")
}
