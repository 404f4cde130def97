// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrBlockedURL は取得先URLが安全でないと判定された場合のエラー。
var ErrBlockedURL = errors.New("blocked URL")

// ErrResponseTooLarge はContent-Lengthが上限を超えるレスポンスのエラー。
var ErrResponseTooLarge = errors.New("response too large")

// SSRFGuardService は外部URL取得時のSSRF防止機能。
// 記事ページの取得とフィードのポーリングの両方で使用される。
type SSRFGuardService interface {
	// NewSafeClient は接続先IPをダイヤル時に検証するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
	// ValidateURL はDNS解決を伴わない静的検証を行う。
	ValidateURL(rawURL string) error
}

var allowedSchemes = []string{"http", "https"}

// blockedPrefixes は取得を拒否するアドレス範囲。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),      // カレントネットワーク
	netip.MustParsePrefix("10.0.0.0/8"),     // RFC 1918
	netip.MustParsePrefix("100.64.0.0/10"),  // キャリアグレードNAT
	netip.MustParsePrefix("127.0.0.0/8"),    // ループバック
	netip.MustParsePrefix("169.254.0.0/16"), // リンクローカル（メタデータIPを含む）
	netip.MustParsePrefix("172.16.0.0/12"),  // RFC 1918
	netip.MustParsePrefix("192.168.0.0/16"), // RFC 1918
	netip.MustParsePrefix("224.0.0.0/4"),    // マルチキャスト
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// blockedHostSuffixes はIPに解決する前に拒否するホスト名（完全一致またはサフィックス一致）。
var blockedHostSuffixes = []string{
	"localhost",
	"metadata.google.internal",
}

const (
	// maxRedirects は追従するリダイレクトの上限。
	maxRedirects = 5
)

// SSRFGuard はSSRFGuardServiceの実装。
type SSRFGuard struct {
	// allowPrivate はローカル開発用にプライベートアドレスへの取得を許可する。
	allowPrivate bool
}

// NewSSRFGuard はSSRFGuardを生成する。allowPrivateは開発環境でのみtrueにする。
func NewSSRFGuard(allowPrivate bool) *SSRFGuard {
	return &SSRFGuard{allowPrivate: allowPrivate}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// 本番設定ではsafeurlがダイヤル時に解決済みIPを検証するため、DNS再バインディングも防げる。
// リダイレクトは最大5回まで、各リダイレクト先もValidateURLで再検証する。
// maxResponseSizeを超えるContent-Lengthのレスポンスは本文を読まずにエラーにする。
func (g *SSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	var client *http.Client
	if g.allowPrivate {
		client = &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	} else {
		config := safeurl.GetConfigBuilder().
			SetTimeout(timeout).
			SetAllowedSchemes(allowedSchemes...).
			SetAllowedPorts(80, 443).
			Build()
		client = safeurl.Client(config).Client
	}

	client.CheckRedirect = g.checkRedirect
	if maxResponseSize > 0 {
		client.Transport = &sizeLimitTransport{next: client.Transport, max: maxResponseSize}
	}
	return client
}

// ValidateURL はスキーム、ホスト、IPリテラルを検証する。
// ホスト名のDNS解決後の検証はNewSafeClientのダイヤラーが行う。
func (g *SSRFGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty URL", ErrBlockedURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", ErrBlockedURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("%w: disallowed scheme %q (allowed: %v)", ErrBlockedURL, scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("%w: empty host in %s", ErrBlockedURL, rawURL)
	}

	if g.allowPrivate {
		return nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isBlockedAddr(addr) {
			return fmt.Errorf("%w: blocked IP address %s", ErrBlockedURL, addr)
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("%w: blocked host %s", ErrBlockedURL, host)
	}
	return nil
}

func (g *SSRFGuard) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return g.ValidateURL(req.URL.String())
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isBlockedAddr はIPv4射影IPv6アドレスをIPv4に戻してから照合する。
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsUnspecified() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, blocked := range blockedHostSuffixes {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

// sizeLimitTransport はContent-Lengthが上限を超えるレスポンスを拒否する。
// Content-Lengthが不明な場合は呼び出し側のio.LimitReaderに任せる。
type sizeLimitTransport struct {
	next http.RoundTripper
	max  int64
}

func (t *sizeLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > t.max {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrResponseTooLarge, resp.ContentLength, t.max)
	}
	return resp, nil
}

var _ SSRFGuardService = (*SSRFGuard)(nil)
