package extract

import (
	"strings"
	"testing"

	"github.com/hitoshi/linkstash/internal/fetch"
	"github.com/hitoshi/linkstash/internal/model"
)

// longParagraph はスコアリング閾値を確実に超える長さの段落テキストを返す。
func longParagraph() string {
	return strings.Repeat("この文章は記事本文として十分な長さを持つテキストである。", 10)
}

func htmlPage(body string) *fetch.RawPage {
	return &fetch.RawPage{
		URL:         "https://example.com/article",
		Body:        []byte(body),
		ContentType: "text/html; charset=utf-8",
		StatusCode:  200,
	}
}

// TestExtract_Title はtitle要素からのタイトル抽出と空白の畳み込みを検証する。
func TestExtract_Title(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name      string
		html      string
		wantTitle string
		wantFound bool
	}{
		{
			name:      "titleが抽出される",
			html:      "<html><head><title>記事のタイトル</title></head><body></body></html>",
			wantTitle: "記事のタイトル",
			wantFound: true,
		},
		{
			name:      "連続する空白と改行は1つに畳み込まれる",
			html:      "<html><head><title>  記事の\n\t  タイトル  </title></head><body></body></html>",
			wantTitle: "記事の タイトル",
			wantFound: true,
		},
		{
			name:      "title要素がない場合は番兵値",
			html:      "<html><head></head><body><p>本文</p></body></html>",
			wantTitle: model.NoTitleSentinel,
			wantFound: false,
		},
		{
			name:      "空のtitle要素は番兵値",
			html:      "<html><head><title>   </title></head><body></body></html>",
			wantTitle: model.NoTitleSentinel,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(htmlPage(tt.html))
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.TitleFound != tt.wantFound {
				t.Errorf("TitleFound = %v, want %v", got.TitleFound, tt.wantFound)
			}
		})
	}
}

// TestExtract_EmptyAndNilPage は空ボディとnilページの縮退動作を検証する。
func TestExtract_EmptyAndNilPage(t *testing.T) {
	e := NewExtractor()

	for _, page := range []*fetch.RawPage{nil, htmlPage("")} {
		got := e.Extract(page)
		if got.Title != model.NoTitleSentinel {
			t.Errorf("Title = %q, want %q", got.Title, model.NoTitleSentinel)
		}
		if got.TitleFound || got.ContentFound {
			t.Errorf("TitleFound = %v, ContentFound = %v, want both false", got.TitleFound, got.ContentFound)
		}
		if got.Content != "" {
			t.Errorf("Content = %q, want empty", got.Content)
		}
	}
}

// TestExtract_SelectsArticleBody は記事要素が本文として選択され、
// ナビゲーションやサイドバーが結果に含まれないことを検証する。
func TestExtract_SelectsArticleBody(t *testing.T) {
	e := NewExtractor()

	page := htmlPage(`<html><head><title>テスト</title></head><body>
<nav><a href="/">ホーム</a><a href="/about">会社概要</a></nav>
<article>
<p>` + longParagraph() + `</p>
<p>` + longParagraph() + `</p>
</article>
<div class="sidebar"><a href="/ranking">ランキング記事リンク</a></div>
<footer>コピーライト表記</footer>
</body></html>`)

	got := e.Extract(page)

	if !got.ContentFound {
		t.Fatal("ContentFound = false, want true")
	}
	if !strings.Contains(got.Content, "記事本文として十分な長さ") {
		t.Errorf("Content に本文段落が含まれていない: %q", got.Content)
	}
	if strings.Contains(got.Content, "会社概要") {
		t.Errorf("Content にナビゲーションが含まれている: %q", got.Content)
	}
	if strings.Contains(got.Content, "ランキング記事リンク") {
		t.Errorf("Content にサイドバーが含まれている: %q", got.Content)
	}
	if strings.Contains(got.Content, "コピーライト表記") {
		t.Errorf("Content にフッターが含まれている: %q", got.Content)
	}
}

// TestExtract_RemovesScriptAndStyle はscript・style等のジャンクタグが
// 本文から除去されることを検証する。
func TestExtract_RemovesScriptAndStyle(t *testing.T) {
	e := NewExtractor()

	page := htmlPage(`<html><head><title>テスト</title></head><body>
<article>
<p>` + longParagraph() + `</p>
<script>trackPageView()</script>
<style>.ad{display:block}</style>
<noscript>JavaScriptを有効にしてください</noscript>
</article>
</body></html>`)

	got := e.Extract(page)

	if !got.ContentFound {
		t.Fatal("ContentFound = false, want true")
	}
	for _, absent := range []string{"<script", "trackPageView", "<style", "display:block", "<noscript"} {
		if strings.Contains(got.Content, absent) {
			t.Errorf("Content に %q が含まれている: %q", absent, got.Content)
		}
	}
}

// TestExtract_PrunesNegativeHintBlocks は選択された記事ルート内の
// 負のclass/idヒントを持つブロックが刈り取られることを検証する。
func TestExtract_PrunesNegativeHintBlocks(t *testing.T) {
	e := NewExtractor()

	page := htmlPage(`<html><head><title>テスト</title></head><body>
<article>
<p>` + longParagraph() + `</p>
<div class="share-buttons">シェアする</div>
<div class="related">関連記事一覧</div>
<p>` + longParagraph() + `</p>
</article>
</body></html>`)

	got := e.Extract(page)

	if !got.ContentFound {
		t.Fatal("ContentFound = false, want true")
	}
	if strings.Contains(got.Content, "シェアする") {
		t.Errorf("Content にシェアボタンが含まれている: %q", got.Content)
	}
	if strings.Contains(got.Content, "関連記事一覧") {
		t.Errorf("Content に関連記事が含まれている: %q", got.Content)
	}
}

// TestExtract_SPAShellDegrades は本文テキストのないSPAシェルで
// 空コンテンツに縮退することを検証する。
func TestExtract_SPAShellDegrades(t *testing.T) {
	e := NewExtractor()

	page := htmlPage(`<html><head><title>アプリ</title></head><body>
<div id="root"></div>
<script src="/bundle.js"></script>
</body></html>`)

	got := e.Extract(page)

	if got.ContentFound {
		t.Errorf("ContentFound = true, want false (SPAシェル)")
	}
	if got.Content != "" {
		t.Errorf("Content = %q, want empty", got.Content)
	}
	if got.Title != "アプリ" || !got.TitleFound {
		t.Errorf("Title = %q (found=%v), want %q (found=true)", got.Title, got.TitleFound, "アプリ")
	}
}

// TestExtract_CharsetDecoding はContent-Typeヘッダーで宣言された
// 非UTF-8エンコーディングがデコードされることを検証する。
func TestExtract_CharsetDecoding(t *testing.T) {
	e := NewExtractor()

	// ISO-8859-1エンコード済みバイト列（0xE9 = é）
	body := []byte("<html><head><title>Caf\xe9 Guide</title></head><body><p>" +
		strings.Repeat("A detailed article about coffee culture and cafe history. ", 5) +
		"</p></body></html>")

	page := &fetch.RawPage{
		URL:         "https://example.com/cafe",
		Body:        body,
		ContentType: "text/html; charset=iso-8859-1",
		StatusCode:  200,
	}

	got := e.Extract(page)

	if got.Title != "Café Guide" {
		t.Errorf("Title = %q, want %q", got.Title, "Café Guide")
	}
	if !got.TitleFound {
		t.Error("TitleFound = false, want true")
	}
}

// TestExtract_ContentIsFragment は抽出結果がコンテナタグを含まない
// 子ノード列の断片であることを検証する。
func TestExtract_ContentIsFragment(t *testing.T) {
	e := NewExtractor()

	page := htmlPage(`<html><head><title>テスト</title></head><body>
<article class="post"><p>` + longParagraph() + `</p></article>
</body></html>`)

	got := e.Extract(page)

	if !got.ContentFound {
		t.Fatal("ContentFound = false, want true")
	}
	if strings.Contains(got.Content, "<article") {
		t.Errorf("Content にコンテナタグが含まれている: %q", got.Content)
	}
	if !strings.HasPrefix(got.Content, "<p>") {
		t.Errorf("Content = %q, want to start with <p>", got.Content)
	}
}
