// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/linkstash/internal/model"
)

// IngestServiceInterface はリンクハンドラーが必要とする取り込みサービスのインターフェース。
type IngestServiceInterface interface {
	// Ingest はURLを1件取り込み、永続化済みのリンクを返す。
	Ingest(ctx context.Context, rawURL string) (*model.Link, error)
}

// LinkFinderInterface はリンク読み取りのインターフェース。
// repository.LinkRepositoryのサブセット。
type LinkFinderInterface interface {
	FindByID(ctx context.Context, id string) (*model.Link, error)
	ListAll(ctx context.Context) ([]*model.Link, error)
	ListByCategory(ctx context.Context, category model.Category) ([]*model.Link, error)
}

// SanitizerInterface は読み取り時サニタイズのインターフェース。
type SanitizerInterface interface {
	Sanitize(rawHTML string) string
}

// LinkHandler はリンク管理のHTTPハンドラー。
// レスポンスのcontentは必ずサニタイズを通し、保存済みの生HTMLを
// レンダリング面にそのまま晒すことはない。
type LinkHandler struct {
	ingest    IngestServiceInterface
	finder    LinkFinderInterface
	sanitizer SanitizerInterface
}

// NewLinkHandler はLinkHandlerを生成する。
func NewLinkHandler(ingest IngestServiceInterface, finder LinkFinderInterface, sanitizer SanitizerInterface) *LinkHandler {
	return &LinkHandler{
		ingest:    ingest,
		finder:    finder,
		sanitizer: sanitizer,
	}
}

// --- リクエスト/レスポンス型 ---

// createLinkRequest はリンク作成リクエストのボディ。
// 必須フィールドはurlのみ。
type createLinkRequest struct {
	URL string `json:"url"`
}

// linkResponse はリンクのレスポンス。
// Contentはサニタイズ済みHTML。
type linkResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// linkListResponse はリンク一覧のレスポンス。
type linkListResponse struct {
	Links []linkResponse `json:"links"`
}

// categoriesResponse はカテゴリ閉集合のレスポンス。
// フロントエンドのフィルタUIと共有する契約。
type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// toLinkResponse はドメインのLinkをレスポンス型に変換する。
// contentはここでサニタイズされる。
func (h *LinkHandler) toLinkResponse(link *model.Link) linkResponse {
	return linkResponse{
		ID:        link.ID,
		URL:       link.URL,
		Title:     link.Title,
		Content:   h.sanitizer.Sanitize(link.Content),
		Category:  string(link.Category),
		CreatedAt: link.CreatedAt,
	}
}

// CreateLink はURLを受け取り、取り込みパイプラインを同期実行して
// 永続化済みのレコード（採番済みID含む）を返す。
// POST /links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	link, err := h.ingest.Ingest(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.toLinkResponse(link))
}

// ListLinks はリンク一覧をcreated_at降順で取得する。
// categoryクエリパラメータで閉集合のラベルによるフィルタができる。
// GET /links?category=Technology
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	var links []*model.Link
	var err error

	if label := r.URL.Query().Get("category"); label != "" {
		category, ok := model.ParseCategory(label)
		if !ok {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidCategoryError(label))
			return
		}
		links, err = h.finder.ListByCategory(r.Context(), category)
	} else {
		links, err = h.finder.ListAll(r.Context())
	}

	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := linkListResponse{Links: make([]linkResponse, 0, len(links))}
	for _, link := range links {
		resp.Links = append(resp.Links, h.toLinkResponse(link))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetLink はリンク詳細を取得する。
// GET /links/:id
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "id")

	link, err := h.finder.FindByID(r.Context(), linkID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if link == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewLinkNotFoundError(linkID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toLinkResponse(link))
}

// ListCategories はカテゴリの閉集合を定義順で返す。
// GET /categories
func (h *LinkHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := model.AllCategories()
	resp := categoriesResponse{Categories: make([]string, 0, len(categories))}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, string(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- エラーレスポンス ---

// apiErrorResponse はAPIエラーレスポンスのボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeInvalidCategory, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeFetchFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeLinkNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
