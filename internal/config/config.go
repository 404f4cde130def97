package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Logging
	LogLevel string

	// Fetch
	FetchTimeout      time.Duration
	FetchMaxSize      int64
	FetchAllowPrivate bool

	// Classifier
	ClassifierAPIKey     string
	ClassifierBaseURL    string
	ClassifierModel      string
	ClassifierTimeout    time.Duration
	ClassifierMaxChars   int
	ClassifierMaxTokens  int
	ClassifierRatePerMin int

	// Ingest
	IngestMaxConcurrent int
	IngestMaxURLs       int

	// Rate Limit（req/min/client）
	RateLimitGeneral int
	RateLimitScrape  int

	// Feed poller
	FeedSourcesFile  string
	FeedPollInterval time.Duration
	FeedMaxItems     int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。DATABASE_URLのみ必須。
// 解釈できない値や0以下の件数・期間は警告を出してデフォルト値を使う。
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("required environment variables are not set: [DATABASE_URL]")
	}

	return &Config{
		DatabaseURL: dbURL,
		LogLevel:    strings.ToLower(env("LOG_LEVEL", "info", parseString)),

		FetchTimeout:      env("FETCH_TIMEOUT", 10*time.Second, positive(time.ParseDuration)),
		FetchMaxSize:      env("FETCH_MAX_SIZE", int64(5*1024*1024), positive(parseInt64)),
		FetchAllowPrivate: env("FETCH_ALLOW_PRIVATE", false, strconv.ParseBool),

		ClassifierAPIKey:     os.Getenv("CLASSIFIER_API_KEY"),
		ClassifierBaseURL:    os.Getenv("CLASSIFIER_BASE_URL"),
		ClassifierModel:      env("CLASSIFIER_MODEL", "claude-3-5-haiku-latest", parseString),
		ClassifierTimeout:    env("CLASSIFIER_TIMEOUT", 30*time.Second, positive(time.ParseDuration)),
		ClassifierMaxChars:   env("CLASSIFIER_MAX_CHARS", 4000, positive(strconv.Atoi)),
		ClassifierMaxTokens:  env("CLASSIFIER_MAX_TOKENS", 512, positive(strconv.Atoi)),
		ClassifierRatePerMin: env("CLASSIFIER_RATE_PER_MIN", 60, positive(strconv.Atoi)),

		IngestMaxConcurrent: env("INGEST_MAX_CONCURRENT", 1, positive(strconv.Atoi)),
		IngestMaxURLs:       env("INGEST_MAX_URLS", 50, positive(strconv.Atoi)),

		RateLimitGeneral: env("RATE_LIMIT_GENERAL", 120, positive(strconv.Atoi)),
		RateLimitScrape:  env("RATE_LIMIT_SCRAPE", 10, positive(strconv.Atoi)),

		FeedSourcesFile:  os.Getenv("FEED_SOURCES_FILE"),
		FeedPollInterval: env("FEED_POLL_INTERVAL", 30*time.Minute, positive(time.ParseDuration)),
		FeedMaxItems:     env("FEED_MAX_ITEMS", 20, positive(strconv.Atoi)),

		ServerPort:        env("SERVER_PORT", "8080", parseString),
		CORSAllowedOrigin: env("CORS_ALLOWED_ORIGIN", "*", parseString),
	}, nil
}

// ClassifierEnabled は分類器のAPIキーが設定されているかを返す。
// 未設定の場合、記事は分類なしで保存される。
func (c *Config) ClassifierEnabled() bool {
	return c.ClassifierAPIKey != ""
}

// scrapeWriteSlack はDB操作とレスポンス書き込みのための余裕。
const scrapeWriteSlack = time.Minute

// ScrapeWriteTimeout は上限件数のバッチが最悪の場合でも書き込み期限内に完了する
// HTTPサーバーのWriteTimeoutを返す。
// 1件あたり取得と分類のタイムアウトの合計を要し、同時実行数ごとに並行して処理される。
func (c *Config) ScrapeWriteTimeout() time.Duration {
	concurrent := max(c.IngestMaxConcurrent, 1)
	rounds := (c.IngestMaxURLs + concurrent - 1) / concurrent
	return time.Duration(rounds)*(c.FetchTimeout+c.ClassifierTimeout) + scrapeWriteSlack
}

type number interface {
	~int | ~int64
}

// env はkeyの値をparseで解釈する。未設定ならdef、解釈に失敗した場合は警告を出してdefを返す。
func env[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("環境変数の値が不正なためデフォルト値を使用します",
			slog.String("key", key),
			slog.String("value", raw),
			slog.String("error", err.Error()),
		)
		return def
	}
	return v
}

// positive はparseの結果が0以下の場合にエラーにする。
func positive[T number](parse func(string) (T, error)) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := parse(s)
		if err != nil {
			return v, err
		}
		if v <= 0 {
			return v, fmt.Errorf("must be positive: %s", s)
		}
		return v, nil
	}
}

func parseString(s string) (string, error) { return s, nil }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
