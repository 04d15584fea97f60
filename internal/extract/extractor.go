// Package extract はHTMLページから本文記事を抽出する。
//
// readability系のヒューリスティックを実装する。ブロック要素を
// テキスト密度でスコアリングし、最高スコアのノードを記事ルートとして
// 最小限のHTML断片に直列化する。抽出は決してエラーを返さず、
// 本文が見つからないページでは空のコンテンツと番兵タイトルに
// デグレードする（SPAシェルのようなページも有効な低価値結果として扱う）。
package extract

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/hitoshi/linkstash/internal/fetch"
	"github.com/hitoshi/linkstash/internal/model"
)

// minContentTextLen はスコアリング対象となるブロックの最小テキスト長。
// これ未満のブロックは本文候補として扱わない。
const minContentTextLen = 140

// negativeHintPattern はナビゲーション・広告・サイドバー等の
// ボイラープレートを示唆するclass/id命名パターン。
var negativeHintPattern = regexp.MustCompile(`(?i)\b(nav|menu|sidebar|side-bar|footer|header|banner|breadcrumbs?|comments?|share|social|sponsor|promo|advert(isement)?|ads?|widget|related|pager|pagination|masthead)\b`)

// positiveHintPattern は本文を示唆するclass/id命名パターン。
var positiveHintPattern = regexp.MustCompile(`(?i)\b(article|content|main|entry|post|body|text|story|column)\b`)

// junkTags はコンテンツ価値がなくスコアリング前に除去するタグ。
// nav/aside/footer/header/formは構造ヒントとしてボイラープレート扱いする。
var junkTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"nav":      true,
	"aside":    true,
	"footer":   true,
	"header":   true,
	"form":     true,
	"button":   true,
	"select":   true,
}

// candidateTags は記事ルート候補となるブロック要素。
var candidateTags = map[string]bool{
	"article": true,
	"main":    true,
	"section": true,
	"div":     true,
	"td":      true,
	"body":    true,
}

// Result は抽出結果を表す。
// 抽出は失敗せず、見つからなかったものはフォールバック値で埋めて
// フラグで縮退を示す。
type Result struct {
	Title        string
	Content      string // 記事ルート配下の最小HTML断片（未サニタイズ）
	TitleFound   bool
	ContentFound bool
}

// Extractor はHTMLから本文を抽出する。
type Extractor struct {
	minTextLen int
}

// NewExtractor はExtractorの新しいインスタンスを生成する。
func NewExtractor() *Extractor {
	return &Extractor{minTextLen: minContentTextLen}
}

// Extract は生ページから本文記事を抽出する。
// バイト列は構造解析の前に、Content-Typeヘッダーまたはmetaタグで
// 宣言された（あるいは推定された）文字エンコーディングでデコードする。
// 生バイトのまま解析すると非UTF-8ページでスコアリングとタイトルが
// 壊れるため、このデコード順序は正しさの要件である。
func (e *Extractor) Extract(page *fetch.RawPage) Result {
	degraded := Result{Title: model.NoTitleSentinel}

	if page == nil || len(page.Body) == 0 {
		return degraded
	}

	reader, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		// エンコーディング判定に失敗した場合は生バイトで続行する
		reader = io.Reader(bytes.NewReader(page.Body))
	}

	doc, err := html.Parse(reader)
	if err != nil {
		return degraded
	}

	result := Result{}
	result.Title, result.TitleFound = extractTitle(doc)
	if !result.TitleFound {
		result.Title = model.NoTitleSentinel
	}

	removeJunk(doc)

	best := e.selectArticleRoot(doc)
	if best == nil {
		return result
	}

	pruneBoilerplate(best)
	result.Content = renderFragment(best)
	result.ContentFound = result.Content != ""
	return result
}

// extractTitle はdocument直下のtitle要素から表示タイトルを解決する。
// 連続する空白は1つに畳み込む。空の場合はfalseを返す。
func extractTitle(doc *html.Node) (string, bool) {
	var title string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = textContent(n)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	cleaned := strings.Join(strings.Fields(title), " ")
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// removeJunk はscript・style・コメント等のコンテンツ価値のないノードを
// スコアリング前にツリーから除去する。
func removeJunk(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			continue
		}
		if c.Type == html.ElementNode && junkTags[c.Data] {
			n.RemoveChild(c)
			continue
		}
		removeJunk(c)
	}
}

// nodeStats はサブツリーの集計値。スコアリングの入力となる。
type nodeStats struct {
	textLen     int // テキスト総量（空白正規化後）
	linkTextLen int // aタグ配下のテキスト量
	elemCount   int // 要素ノード数（マークアップ量の指標）
}

// candidate はスコアリング済みの記事ルート候補。
type candidate struct {
	node  *html.Node
	score float64
}

// selectArticleRoot はブロック要素をスコアリングし、最高スコアの
// ノードを記事ルートとして返す。同点の場合は文書順で先のノードが勝つ。
// 候補が存在しない場合はnilを返す。
func (e *Extractor) selectArticleRoot(doc *html.Node) *html.Node {
	var best *candidate

	var walk func(n *html.Node, inLink bool) nodeStats
	walk = func(n *html.Node, inLink bool) nodeStats {
		var stats nodeStats

		switch n.Type {
		case html.TextNode:
			l := len(strings.Join(strings.Fields(n.Data), " "))
			stats.textLen = l
			if inLink {
				stats.linkTextLen = l
			}
			return stats
		case html.ElementNode:
			stats.elemCount = 1
			if n.Data == "a" {
				inLink = true
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			cs := walk(c, inLink)
			stats.textLen += cs.textLen
			stats.linkTextLen += cs.linkTextLen
			stats.elemCount += cs.elemCount
		}

		if n.Type == html.ElementNode && candidateTags[n.Data] {
			if score, ok := e.score(n, stats); ok {
				// 厳密な大小比較により、同点では先に出現したノードが選ばれる
				if best == nil || score > best.score {
					best = &candidate{node: n, score: score}
				}
			}
		}

		return stats
	}
	walk(doc, false)

	if best == nil {
		return nil
	}
	return best.node
}

// score は候補ノードのスコアを計算する。
// テキスト対マークアップ比が高いほど高スコア、リンクテキストの割合が
// 高いほど低スコア。class/idの構造ヒントで加点・減点する。
// スコアリング対象外の場合はfalseを返す。
func (e *Extractor) score(n *html.Node, stats nodeStats) (float64, bool) {
	if stats.textLen < e.minTextLen {
		return 0, false
	}

	density := float64(stats.textLen) / float64(1+stats.elemCount)
	linkRatio := float64(stats.linkTextLen) / float64(stats.textLen)
	score := density * (1.0 - linkRatio)

	hint := classAndID(n)
	switch {
	case negativeHintPattern.MatchString(hint):
		score *= 0.25
	case positiveHintPattern.MatchString(hint):
		score *= 1.5
	}

	if n.Data == "article" || n.Data == "main" {
		score *= 1.5
	}

	return score, true
}

// pruneBoilerplate は選択された記事ルート配下から、なおボイラープレートに
// 見えるノード（負のclass/idヒントを持つ要素）を除去する。
// 記事ルート自身は除去対象にしない。
func pruneBoilerplate(root *html.Node) {
	var next *html.Node
	for c := root.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && negativeHintPattern.MatchString(classAndID(c)) {
			root.RemoveChild(c)
			continue
		}
		pruneBoilerplate(c)
	}
}

// renderFragment は記事ルートの子ノード列をHTML断片として直列化する。
// コンテナタグ自身は含めない最小限の断片を返す。
func renderFragment(root *html.Node) string {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return strings.TrimSpace(buf.String())
}

// textContent はサブツリーの全テキストを連結して返す。
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// classAndID はclass属性とid属性を連結して返す。ヒント照合に使用する。
func classAndID(n *html.Node) string {
	var parts []string
	for _, attr := range n.Attr {
		if attr.Key == "class" || attr.Key == "id" {
			parts = append(parts, attr.Val)
		}
	}
	return strings.Join(parts, " ")
}
