// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は保存された未加工の記事HTMLを読み取り時に
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。サニタイズ結果は保存されず、
// 常に保存済みの生コンテンツから導出されるため、ポリシー変更は
// 再取り込みなしで過去のレコードにも遡及する。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 取り込み時ではなくAPI応答時（読み取り時）に使用される。
type ContentSanitizerService interface {
	// Sanitize は未信頼のHTMLをレンダリング可能な安全なHTMLに変換する。
	// 構造・テキスト整形タグ（段落、見出し、リスト、強調、リンク、画像、
	// 引用、テーブル）のみを通過させ、script・iframe・object・embed・
	// formタグおよびon*イベント属性を除去する。
	// href/src属性はhttp・https・mailtoスキームのみ許可される
	// （javascript:は無効化される）。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 純粋関数であり決定的。冪等: Sanitize(Sanitize(x)) == Sanitize(x)。
	// パース不能な断片は生のまま通過せず、空の安全な出力に縮退する。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: 段落・見出し・リスト・強調・引用・コード・リンク・画像・テーブル系
//   - 禁止タグ: script, iframe, object, embed, form（許可リストに含めないことで除去される）
//   - on*イベント属性はbluemondayのデフォルトで許可されないため常に除去される
//   - href/src属性: http, https, mailtoスキームのみ許可
//   - aタグ: target="_blank" と rel="noopener noreferrer" を強制付与
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 構造・テキスト整形タグの許可
	p.AllowElements(
		"p", "br", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "b", "i",
		"figure", "figcaption",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	// aタグの設定:
	// - href属性を許可（スキームは下のAllowURLSchemesで制限）
	// - 相対URLは不許可（保存済み断片の基準URLは信頼できない）
	// - target="_blank" と rel="noreferrer noopener" を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// imgタグの設定:
	// - src属性を許可（スキーム制限あり。javascript:, data:等は拒否）
	// - alt属性を許可（アクセシビリティ確保）
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")

	// href/srcに許可するURIスキーム。javascript:はここで無効化される
	p.AllowURLSchemes("http", "https", "mailto")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
