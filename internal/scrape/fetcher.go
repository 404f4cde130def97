// Package scrape は記事ページの取得と本文抽出を提供する。
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// userAgent は記事取得時に送信するUser-Agent。
const userAgent = "articlelens/1.0"

// ErrBlockedURL はSSRF検証でURLが拒否されたことを示す。
var ErrBlockedURL = errors.New("blocked URL")

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Document は取得した記事ページ。BodyはUTF-8に変換済み。
type Document struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// FetchError は記事ページの取得失敗を表す。
// StatusCodeは応答を受け取れた場合のみ設定される（通信失敗時は0）。
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error はエラーメッセージを返す。
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap は原因のエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher はURLから記事ページのHTMLを1回のGETで取得する。リトライは行わない。
type Fetcher struct {
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// ssrfGuardがnilの場合は検証なしの標準クライアントを使用する（テスト用）。
func NewFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は指定URLのページを取得する。
// SSRF検証失敗、通信失敗、タイムアウト、2xx以外のステータスはすべて *FetchError で返す。
// 本文はmaxBodySizeで打ち切り、Content-Typeとmetaタグから判定した文字コードでUTF-8に変換する。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
			return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrBlockedURL, err)}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("レスポンスの読み取りに失敗: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	return &Document{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        decodeToUTF8(raw, contentType),
	}, nil
}

// decodeToUTF8 は本文をUTF-8に変換する。判定・変換に失敗した場合は元のバイト列を返す。
func decodeToUTF8(raw []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return decoded
}

// httpClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *Fetcher) httpClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	}
	return &http.Client{Timeout: f.timeout}
}
