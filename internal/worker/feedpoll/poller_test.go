package feedpoll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/articlelens/internal/config"
	"github.com/hitoshi/articlelens/internal/ingest"
	"github.com/hitoshi/articlelens/internal/model"
)

type mockIngester struct {
	mu    sync.Mutex
	calls [][]string
}

func (m *mockIngester) Ingest(_ context.Context, urls []string) ingest.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), urls...))
	results := make([]model.ScrapeOutcome, len(urls))
	for i, u := range urls {
		results[i] = model.ScrapeOutcome{URL: u, Status: model.OutcomeSuccess, ArticleID: fmt.Sprintf("id-%d", i+1)}
	}
	return ingest.Report{Processed: len(urls), Results: results}
}

type mockMetrics struct {
	mu       sync.Mutex
	success  int
	failures int
}

func (m *mockMetrics) RecordOutcome(string) {}
func (m *mockMetrics) RecordArticleCreated() {}
func (m *mockMetrics) RecordClassifyUnavailable() {}
func (m *mockMetrics) RecordHTTPStatus(int) {}
func (m *mockMetrics) RecordFetchLatency(time.Duration) {}
func (m *mockMetrics) RecordClassifyLatency(time.Duration) {}
func (m *mockMetrics) RecordFeedPoll(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.success++
	} else {
		m.failures++
	}
}

type blockingGuard struct{}

func (blockingGuard) ValidateURL(string) error {
	return errors.New("blocked")
}

func (blockingGuard) NewSafeClient(timeout time.Duration, _ int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func rssFeed(links ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Test</title><link>https://example.com</link>`)
	for i, l := range links {
		fmt.Fprintf(&b, "<item><title>Item %d</title><link>%s</link></item>", i+1, l)
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

func newFeedServer(t *testing.T, body, contentType string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestPoller(sources []config.FeedSource, ing Ingester, guard SSRFValidator, collector *mockMetrics, maxItems int) *Poller {
	return NewPoller(sources, ing, guard, collector, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), Options{
		Timeout:  5 * time.Second,
		MaxItems: maxItems,
	})
}

func TestPoll_RSSLinks(t *testing.T) {
	srv := newFeedServer(t, rssFeed("https://example.com/a", "https://example.com/b"), "application/rss+xml")
	p := newTestPoller(nil, &mockIngester{}, nil, &mockMetrics{}, 0)

	links, err := p.Poll(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 || links[0] != "https://example.com/a" || links[1] != "https://example.com/b" {
		t.Errorf("links = %v", links)
	}
}

func TestPoll_AtomLinks(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Test</title>
  <entry><title>One</title><link href="https://example.com/one"/><id>1</id></entry>
</feed>`
	srv := newFeedServer(t, atom, "application/atom+xml")
	p := newTestPoller(nil, &mockIngester{}, nil, &mockMetrics{}, 0)

	links, err := p.Poll(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0] != "https://example.com/one" {
		t.Errorf("links = %v", links)
	}
}

func TestPoll_MaxItemsAndDedup(t *testing.T) {
	srv := newFeedServer(t, rssFeed(
		"https://example.com/1",
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	), "application/rss+xml")
	p := newTestPoller(nil, &mockIngester{}, nil, &mockMetrics{}, 2)

	links, err := p.Poll(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 || links[0] != "https://example.com/1" || links[1] != "https://example.com/2" {
		t.Errorf("links = %v", links)
	}
}

func TestPoll_HTMLDiscoversFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><link rel="alternate" type="application/rss+xml" href="/feed.xml"></head><body></body></html>`))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed("https://example.com/discovered")))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestPoller(nil, &mockIngester{}, nil, &mockMetrics{}, 0)
	links, err := p.Poll(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0] != "https://example.com/discovered" {
		t.Errorf("links = %v", links)
	}
}

func TestPoll_HTMLWithoutFeed(t *testing.T) {
	srv := newFeedServer(t, `<html><head><title>x</title></head><body></body></html>`, "text/html")
	p := newTestPoller(nil, &mockIngester{}, nil, &mockMetrics{}, 0)

	if _, err := p.Poll(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for HTML page without feed link")
	}
}

func TestPoll_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newTestPoller(nil, &mockIngester{}, nil, &mockMetrics{}, 0)
	_, err := p.Poll(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected 503 error, got %v", err)
	}
}

func TestPoll_SSRFBlocked(t *testing.T) {
	p := newTestPoller(nil, &mockIngester{}, blockingGuard{}, &mockMetrics{}, 0)
	_, err := p.Poll(context.Background(), "http://169.254.169.254/feed")
	if err == nil || !strings.Contains(err.Error(), "SSRF") {
		t.Errorf("expected SSRF error, got %v", err)
	}
}

func TestRunOnce_FailingFeedIsSkipped(t *testing.T) {
	good := newFeedServer(t, rssFeed("https://example.com/good"), "application/rss+xml")
	bad := newFeedServer(t, "not a feed", "application/xml")

	ing := &mockIngester{}
	collector := &mockMetrics{}
	p := newTestPoller([]config.FeedSource{
		{Name: "bad", URL: bad.URL},
		{Name: "good", URL: good.URL},
	}, ing, nil, collector, 0)

	total := p.RunOnce(context.Background())

	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(ing.calls) != 1 || ing.calls[0][0] != "https://example.com/good" {
		t.Errorf("ingest calls = %v", ing.calls)
	}
	if collector.success != 1 || collector.failures != 1 {
		t.Errorf("poll metrics success=%d failures=%d, want 1/1", collector.success, collector.failures)
	}
}

func TestRunOnce_EmptyFeedDoesNotIngest(t *testing.T) {
	srv := newFeedServer(t, rssFeed(), "application/rss+xml")
	ing := &mockIngester{}
	p := newTestPoller([]config.FeedSource{{Name: "empty", URL: srv.URL}}, ing, nil, &mockMetrics{}, 0)

	if total := p.RunOnce(context.Background()); total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if len(ing.calls) != 0 {
		t.Errorf("ingest should not be called, got %v", ing.calls)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	srv := newFeedServer(t, rssFeed("https://example.com/a"), "application/rss+xml")
	ing := &mockIngester{}
	p := newTestPoller([]config.FeedSource{{Name: "a", URL: srv.URL}}, ing, nil, &mockMetrics{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		ing.mu.Lock()
		n := len(ing.calls)
		ing.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial poll did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestDiscoverFeedURL(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "atom preferred over rss",
			html: `<html><head>
<link rel="alternate" type="application/rss+xml" href="/rss">
<link rel="alternate" type="application/atom+xml" href="https://feeds.example.com/atom">
</head></html>`,
			want: "https://feeds.example.com/atom",
		},
		{
			name: "relative rss resolved",
			html: `<html><head><link rel="alternate" type="application/rss+xml" href="feed.xml"></head></html>`,
			want: "https://example.com/blog/feed.xml",
		},
		{
			name: "non-feed alternate ignored",
			html: `<html><head><link rel="alternate" type="text/html" hreflang="en" href="/en"></head></html>`,
			want: "",
		},
		{
			name: "no links",
			html: `<html><head></head><body><p>x</p></body></html>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscoverFeedURL([]byte(tt.html), "https://example.com/blog/")
			if got != tt.want {
				t.Errorf("DiscoverFeedURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
