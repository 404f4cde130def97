package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/articlelens/internal/article"
	"github.com/hitoshi/articlelens/internal/classify"
	"github.com/hitoshi/articlelens/internal/config"
	"github.com/hitoshi/articlelens/internal/database"
	"github.com/hitoshi/articlelens/internal/handler"
	"github.com/hitoshi/articlelens/internal/ingest"
	"github.com/hitoshi/articlelens/internal/logger"
	"github.com/hitoshi/articlelens/internal/metrics"
	"github.com/hitoshi/articlelens/internal/middleware"
	"github.com/hitoshi/articlelens/internal/repository"
	"github.com/hitoshi/articlelens/internal/scrape"
	"github.com/hitoshi/articlelens/internal/security"
	"github.com/hitoshi/articlelens/internal/worker/feedpoll"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("classifier_enabled", cfg.ClassifierEnabled()),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandIngest:
		return runIngest(cfg, commandArgs(args), os.Stdout)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通確認を行う。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newRegistry はGo/プロセスメトリクスを含むPrometheusレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newOrchestrator は取得→抽出→分類→保存の取り込みパイプラインを構築する。
// 分類器のAPIキーが未設定の場合、記事は分類なしで保存される。
func newOrchestrator(cfg *config.Config, articleRepo *repository.PostgresArticleRepo, collector metrics.MetricsCollector) *ingest.Orchestrator {
	ssrfGuard := security.NewSSRFGuard(cfg.FetchAllowPrivate)
	sanitizer := security.NewContentSanitizer()
	fetcher := scrape.NewFetcher(ssrfGuard, cfg.FetchTimeout, cfg.FetchMaxSize)

	var completer classify.Completer
	if cfg.ClassifierEnabled() {
		completer = classify.NewAnthropicCompleter(classify.AnthropicConfig{
			APIKey:    cfg.ClassifierAPIKey,
			BaseURL:   cfg.ClassifierBaseURL,
			Model:     cfg.ClassifierModel,
			MaxTokens: cfg.ClassifierMaxTokens,
		})
	} else {
		slog.Warn("CLASSIFIER_API_KEY is not set; articles will be stored without classification")
	}
	classifier := classify.NewClassifier(completer, slog.Default(), classify.Options{
		Timeout:    cfg.ClassifierTimeout,
		MaxChars:   cfg.ClassifierMaxChars,
		RatePerMin: cfg.ClassifierRatePerMin,
	})

	return ingest.NewOrchestrator(
		articleRepo, fetcher, classifier, sanitizer, collector,
		slog.Default(), ingest.Options{MaxConcurrent: cfg.IngestMaxConcurrent},
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	articleRepo := repository.NewPostgresArticleRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)
	preferenceRepo := repository.NewPostgresPreferenceRepo(db)

	// 3. メトリクス
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	// 4. ドメインサービスの初期化
	orchestrator := newOrchestrator(cfg, articleRepo, collector)
	articleService := article.NewService(articleRepo, security.NewContentSanitizer())
	favoriteService := article.NewFavoriteService(favoriteRepo, articleRepo)
	preferenceService := article.NewPreferenceService(preferenceRepo)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitScrape),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		ArticleService: articleService,
		IngestService:  orchestrator,
		MaxScrapeURLs:  cfg.IngestMaxURLs,

		FavoriteService:   favoriteService,
		PreferenceService: preferenceService,
	})

	// 6. HTTPサーバーの起動
	// 書き込み期限は上限件数のスクレイプ要求が完了できる長さにする
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ScrapeWriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// FEED_SOURCES_FILEのフィードを定期的に取得し、記事リンクを取り込む。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. フィード定義の読み込み
	sources, err := config.LoadFeedSources(cfg.FeedSourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load feed sources: %w", err)
	}

	// 2. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	if len(sources) == 0 {
		slog.Warn("no feed sources configured; worker will idle",
			slog.String("feed_sources_file", cfg.FeedSourcesFile),
		)
	}

	// 3. パイプラインの初期化
	collector := metrics.NewCollector(prometheus.NewRegistry())
	articleRepo := repository.NewPostgresArticleRepo(db)
	orchestrator := newOrchestrator(cfg, articleRepo, collector)

	poller := feedpoll.NewPoller(
		sources, orchestrator, security.NewSSRFGuard(cfg.FetchAllowPrivate), collector,
		slog.Default(), feedpoll.Options{
			Timeout:     cfg.FetchTimeout,
			MaxBodySize: cfg.FetchMaxSize,
			MaxItems:    cfg.FeedMaxItems,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker starting",
		slog.Duration("poll_interval", cfg.FeedPollInterval),
		slog.Int("feed_count", len(sources)),
	)

	poller.Start(ctx, cfg.FeedPollInterval)

	slog.Info("worker stopped")
	return nil
}

// ingestResult はingestサブコマンドが出力するURLごとの結果。
type ingestResult struct {
	URL       string `json:"url"`
	Status    string `json:"status"`
	ArticleID string `json:"article_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// runIngest は引数のURLを1回だけ取り込み、結果をJSONでoutに書き出す。
// SIGINTまたはSIGTERMを受信すると未処理のURLはエラー結果として報告される。
func runIngest(cfg *config.Config, urls []string, out io.Writer) error {
	if len(urls) == 0 {
		return errors.New("ingest requires at least one URL")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	articleRepo := repository.NewPostgresArticleRepo(db)
	orchestrator := newOrchestrator(cfg, articleRepo, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	report := orchestrator.Ingest(ctx, urls)

	results := make([]ingestResult, len(report.Results))
	for i, o := range report.Results {
		results[i] = ingestResult{
			URL:       o.URL,
			Status:    string(o.Status),
			ArticleID: o.ArticleID,
			Message:   o.Message,
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"processed": report.Processed,
		"succeeded": report.SucceededCount(),
		"results":   results,
	})
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.AppliedVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration version check failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
