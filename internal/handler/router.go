package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/linkstash/internal/middleware"
)

// HealthChecker はヘルスチェック時のDB疎通確認のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	RecordHTTPStatus  func(statusCode int)

	// 監視
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// リンク取り込み・読み取り
	IngestService IngestServiceInterface
	LinkFinder    LinkFinderInterface
	Sanitizer     SanitizerInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → Metrics → RateLimit(General)
//
// POST /links には取り込み専用のレート制限が追加される。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.RecordHTTPStatus != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.RecordHTTPStatus))
	}

	linkHandler := NewLinkHandler(deps.IngestService, deps.LinkFinder, deps.Sanitizer)

	// --- 監視ルート（レート制限なし） ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/links", func(r chi.Router) {
			// POST /links - 取り込み実行（取り込み専用レート制限を追加）
			r.With(deps.RateLimiter.IngestMiddleware()).Post("/", linkHandler.CreateLink)

			r.Get("/", linkHandler.ListLinks)
			r.Get("/{id}", linkHandler.GetLink)
		})

		r.Get("/categories", linkHandler.ListCategories)
	})

	return r
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status string `json:"status"`
}

// newHealthHandler はヘルスチェックハンドラーを生成する。
// DB疎通が確認できない場合は503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(healthResponse{Status: "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
	}
}
