// Package classify は抽出済みコンテンツのカテゴリ分類を提供する。
//
// 分類は外部バックエンドに委譲し、返されたラベルを閉じたカテゴリ集合に
// 対して検証する。バックエンドの障害・タイムアウト・不正ラベル・
// 低信頼度はいずれも呼び出し元にエラーとして伝播せず、Otherに解決する。
// カテゴリなしのコンテンツは誤分類されたコンテンツより悪い、という
// 設計判断による。分類失敗が取り込みをブロックすることはない。
package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/linkstash/internal/model"
)

// maxClassifyTextLen はバックエンドに送信するテキストの最大長。
// 本文全体は不要で、先頭部分だけで十分な分類精度が得られる。
const maxClassifyTextLen = 2000

// Backend は外部分類能力への狭いインターフェース。
// labelは閉集合に対する検証前の生の文字列を返す。
// confidenceは0.0〜1.0の信頼度（バックエンドが返さない場合は1.0）。
type Backend interface {
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}

// Categorizer はタイトルと本文をカテゴリラベルに対応付ける。
type Categorizer struct {
	backend       Backend
	timeout       time.Duration
	minConfidence float64
	logger        *slog.Logger
}

// NewCategorizer はCategorizerの新しいインスタンスを生成する。
// backendがnilの場合、分類は常にOtherにフォールバックする。
func NewCategorizer(backend Backend, timeout time.Duration, minConfidence float64, logger *slog.Logger) *Categorizer {
	return &Categorizer{
		backend:       backend,
		timeout:       timeout,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Classify はタイトルと本文からカテゴリを1つ解決する。
// バックエンドへの試行は取り込み1回につき1回のみで、リトライしない。
// エラーを返さない代わりに、フォールバックが発生した場合は
// 第2戻り値fallbackがtrueになる（縮退はエラーではなく有効な結果）。
func (c *Categorizer) Classify(ctx context.Context, title, content string) (category model.Category, fallback bool) {
	if c.backend == nil {
		c.logger.Info("分類バックエンド未設定のためOtherにフォールバックします")
		return model.CategoryOther, true
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text := buildClassifyText(title, content)
	label, confidence, err := c.backend.Classify(ctx, text)
	if err != nil {
		c.logger.Warn("分類バックエンドの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return model.CategoryOther, true
	}

	cat, ok := model.ParseCategory(label)
	if !ok {
		c.logger.Warn("分類バックエンドが閉集合外のラベルを返しました",
			slog.String("label", label),
		)
		return model.CategoryOther, true
	}

	if confidence < c.minConfidence {
		c.logger.Info("分類の信頼度が閾値未満のためOtherにフォールバックします",
			slog.String("label", label),
			slog.Float64("confidence", confidence),
			slog.Float64("min_confidence", c.minConfidence),
		)
		return model.CategoryOther, true
	}

	return cat, false
}

// buildClassifyText はタイトルと本文を分類用の1つのテキストに結合する。
// HTMLタグは粗く落とし、長さを上限で切り詰める。
// 切り詰めはルーン境界で行い、マルチバイト文字の途中で分断して
// 不正なUTF-8をバックエンドに送ることを避ける。
func buildClassifyText(title, content string) string {
	text := title + "\n" + stripTags(content)
	if len(text) > maxClassifyTextLen {
		cut := maxClassifyTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// stripTags はHTML断片からタグを落とした粗いプレーンテキストを返す。
// 分類入力用の近似であり、正確なDOM処理は不要。
func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteRune(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
