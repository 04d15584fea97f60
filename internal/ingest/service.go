// Package ingest はURL取り込みパイプラインのオーケストレーションを提供する。
//
// 1回の取り込みは Submitted → Fetched → Extracted → Categorized →
// Persisted と進む単一の同期パイプラインとして実行される。
// ハード失敗しうるステージはFetcherのみで、ExtractorとCategorizerは
// 常にフォールバック値を生成する。いずれかのステージが失敗した場合は
// Failed(reason)に遷移して永続化を中止する。部分的なレコードが
// 書き込まれることはない。リトライやキューイングは行わない。
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/linkstash/internal/extract"
	"github.com/hitoshi/linkstash/internal/fetch"
	"github.com/hitoshi/linkstash/internal/model"
	"github.com/hitoshi/linkstash/internal/repository"
)

// Stage は取り込みリクエストの状態機械のステージを表す。
type Stage string

const (
	// StageSubmitted はURLを受理した初期ステージ。
	StageSubmitted Stage = "submitted"
	// StageFetched はページ取得が完了したステージ。
	StageFetched Stage = "fetched"
	// StageExtracted は本文抽出が完了したステージ。
	StageExtracted Stage = "extracted"
	// StageCategorized は分類が完了したステージ。
	StageCategorized Stage = "categorized"
	// StagePersisted はレコード保存が完了した終端ステージ。
	StagePersisted Stage = "persisted"
	// StageFailed はいずれかのステージで失敗した終端ステージ。
	StageFailed Stage = "failed"
)

// PageFetcher はページ取得ステージのインターフェース。
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.RawPage, error)
}

// ContentExtractor は本文抽出ステージのインターフェース。
// エラーを返さず、縮退はResultのフラグで表現される。
type ContentExtractor interface {
	Extract(page *fetch.RawPage) extract.Result
}

// Classifier は分類ステージのインターフェース。
// エラーを返さず、フォールバック発生は第2戻り値で表現される。
type Classifier interface {
	Classify(ctx context.Context, title, content string) (model.Category, bool)
}

// MetricsRecorder はパイプラインが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordIngestSuccess()
	RecordIngestFailure(reason string)
	RecordExtractionDegraded()
	RecordClassificationDegraded()
	RecordFetchLatency(duration time.Duration)
}

// Service は取り込みパイプラインのオーケストレータ。
// 各ステージとストレージコラボレータは構築時に明示的な依存として
// 注入され、テストではフェイクに差し替えられる。
type Service struct {
	repo       repository.LinkRepository
	fetcher    PageFetcher
	extractor  ContentExtractor
	classifier Classifier
	metrics    MetricsRecorder
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.LinkRepository,
	fetcher PageFetcher,
	extractor ContentExtractor,
	classifier Classifier,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		fetcher:    fetcher,
		extractor:  extractor,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Ingest はURLを1件取り込み、永続化済みのリンクを返す。
// フェッチ失敗のみがエラーとなり、その場合レコードは作成されない。
// 抽出・分類の縮退は有効な結果として扱われ、取り込みは成功する。
// 進行中のフェッチは呼び出し元のコンテキストキャンセルに従う。
// 抽出開始以降にキャンセルポイントはない（単一パスでCPUバウンド、
// 入力サイズで有界）。
func (s *Service) Ingest(ctx context.Context, rawURL string) (*model.Link, error) {
	if err := validateURL(rawURL); err != nil {
		s.metrics.RecordIngestFailure("invalid_url")
		return nil, err
	}

	s.logger.Info("取り込みを開始します",
		slog.String("stage", string(StageSubmitted)),
		slog.String("url", rawURL),
	)

	// フェッチ: パイプライン唯一のハード失敗ステージ
	start := time.Now()
	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.metrics.RecordIngestFailure("fetch")
		s.logger.Warn("取り込みが失敗しました",
			slog.String("stage", string(StageFailed)),
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.metrics.RecordFetchLatency(time.Since(start))
	s.logger.Info("ページを取得しました",
		slog.String("stage", string(StageFetched)),
		slog.String("url", rawURL),
		slog.Int("body_bytes", len(page.Body)),
	)

	// 抽出: 常にフォールバック付きの値を生成する
	result := s.extractor.Extract(page)
	if !result.TitleFound || !result.ContentFound {
		s.metrics.RecordExtractionDegraded()
	}
	s.logger.Info("本文を抽出しました",
		slog.String("stage", string(StageExtracted)),
		slog.String("url", rawURL),
		slog.Bool("title_found", result.TitleFound),
		slog.Bool("content_found", result.ContentFound),
	)

	// 分類: 常に閉集合のカテゴリに解決する
	category, fallback := s.classifier.Classify(ctx, result.Title, result.Content)
	if fallback {
		s.metrics.RecordClassificationDegraded()
	}
	s.logger.Info("カテゴリを解決しました",
		slog.String("stage", string(StageCategorized)),
		slog.String("url", rawURL),
		slog.String("category", string(category)),
		slog.Bool("fallback", fallback),
	)

	// 永続化: 全ステージ完了後にのみレコードを作成する。
	// IDの採番はストレージ側の責務。
	link := &model.Link{
		URL:       rawURL,
		Title:     result.Title,
		Content:   result.Content,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, link); err != nil {
		s.metrics.RecordIngestFailure("persist")
		s.logger.Error("リンクの保存に失敗しました",
			slog.String("stage", string(StageFailed)),
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("リンクの保存に失敗しました: %w", err)
	}

	s.metrics.RecordIngestSuccess()
	s.logger.Info("リンクを保存しました",
		slog.String("stage", string(StagePersisted)),
		slog.String("link_id", link.ID),
		slog.String("url", rawURL),
		slog.String("category", string(category)),
	)
	return link, nil
}

// validateURL はFetcher呼び出し前の入力URL検証を行う。
// 空・構文不正・http/https以外のスキーム・ホストなしを拒否する。
func validateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return model.NewInvalidURLError("URLが入力されていません")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return model.NewInvalidURLError(fmt.Sprintf("サポートされないスキームです: %s", scheme))
	}

	if parsed.Host == "" {
		return model.NewInvalidURLError("ホストが含まれていません")
	}

	return nil
}
