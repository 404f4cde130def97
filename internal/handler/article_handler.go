package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/articlelens/internal/article"
	"github.com/hitoshi/articlelens/internal/ingest"
	"github.com/hitoshi/articlelens/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	Save(ctx context.Context, in article.SaveInput) (*article.SaveResult, error)
	List(ctx context.Context) ([]*model.Article, error)
	Trending(ctx context.Context, limit int) ([]*model.Article, error)
	Search(ctx context.Context, filter model.ArticleFilter) ([]*model.Article, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*model.Article, error)
}

// IngestServiceInterface はURLのバッチ取り込みインターフェース。
type IngestServiceInterface interface {
	Ingest(ctx context.Context, urls []string) ingest.Report
}

// ArticleHandler は記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	ingest  IngestServiceInterface
	maxURLs int
}

// NewArticleHandler はArticleHandlerを生成する。
// maxURLsは1回のスクレイピング要求で受け付けるURL数の上限。
func NewArticleHandler(service ArticleServiceInterface, ingestSvc IngestServiceInterface, maxURLs int) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		ingest:  ingestSvc,
		maxURLs: maxURLs,
	}
}

// --- リクエスト/レスポンス型 ---

// scrapeRequest はスクレイピング要求のボディ。
type scrapeRequest struct {
	URLs []string `json:"urls"`
}

// scrapeOutcomeResponse はURLごとの取り込み結果。
type scrapeOutcomeResponse struct {
	URL       string `json:"url"`
	Status    string `json:"status"`
	ArticleID string `json:"article_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// scrapeResponse はスクレイピング要求のレスポンス。
// URL単位の失敗があってもsuccessはtrueとなる。
type scrapeResponse struct {
	Success   bool                    `json:"success"`
	Processed int                     `json:"processed"`
	Results   []scrapeOutcomeResponse `json:"results"`
}

// saveRequest は手動保存要求のボディ。
type saveRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
}

// saveResponse は手動保存のレスポンス。
type saveResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ArticleID string `json:"article_id"`
}

// Scrape はURLのリストを取得・分類・保存する。
// POST /api/articles/scrape
func (h *ArticleHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "リクエストボディのJSONが不正です")
		return
	}
	if len(req.URLs) == 0 {
		writeInvalidRequest(w, "urlsは1件以上指定してください")
		return
	}
	if h.maxURLs > 0 && len(req.URLs) > h.maxURLs {
		writeInvalidRequest(w, fmt.Sprintf("urlsは%d件以下で指定してください", h.maxURLs))
		return
	}

	// クライアントが切断してもバッチは中断せず、全URLを試行する
	report := h.ingest.Ingest(context.WithoutCancel(r.Context()), req.URLs)

	resp := scrapeResponse{
		Success:   true,
		Processed: report.Processed,
		Results:   make([]scrapeOutcomeResponse, len(report.Results)),
	}
	for i, o := range report.Results {
		resp.Results[i] = scrapeOutcomeResponse{
			URL:       o.URL,
			Status:    string(o.Status),
			ArticleID: o.ArticleID,
			Message:   o.Message,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Save は呼び出し元が指定した記事を保存する。
// 新規作成時は201、既存記事の場合は200を返す。
// POST /api/articles/save
func (h *ArticleHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "リクエストボディのJSONが不正です")
		return
	}

	result, err := h.service.Save(r.Context(), article.SaveInput{
		Title:     req.Title,
		Content:   req.Content,
		SourceURL: req.SourceURL,
		Category:  req.Category,
		Summary:   req.Summary,
		Sentiment: req.Sentiment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, saveResponse{
		Success:   true,
		Message:   result.Message,
		ArticleID: result.ID,
	})
}

// List は全記事を新しい順で返す。
// GET /api/articles/
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}

// Trending は最新の記事を返す。
// GET /api/articles/trending?limit=5
func (h *ArticleHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := article.DefaultTrendingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handleServiceError(w, model.NewInvalidLimitError(article.MinTrendingLimit, article.MaxTrendingLimit))
			return
		}
		limit = n
	}

	articles, err := h.service.Trending(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}

// Search は条件に一致する記事を返す。
// GET /api/articles/search?query=xxx&category=yyy&sentiment=zzz
func (h *ArticleHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	articles, err := h.service.Search(r.Context(), model.ArticleFilter{
		Query:     q.Get("query"),
		Category:  q.Get("category"),
		Sentiment: q.Get("sentiment"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}

// Categories は記事に付与されているカテゴリの一覧を返す。
// GET /api/articles/categories
func (h *ArticleHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Get は記事詳細を返す。
// GET /api/articles/{id}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponse(a))
}
