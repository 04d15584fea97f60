package security

import (
	"strings"
	"testing"
)

// TestSanitize_AllowedStructuralTags は記事本文の構造タグが通過することを検証する。
func TestSanitize_AllowedStructuralTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "pタグが許可される",
			input:        "<p>本文の段落</p>",
			wantContains: []string{"<p>本文の段落</p>"},
		},
		{
			name:         "見出しタグ（h2）が許可される",
			input:        "<h2>セクション見出し</h2>",
			wantContains: []string{"<h2>セクション見出し</h2>"},
		},
		{
			name:         "見出しタグ（h1〜h6）が許可される",
			input:        "<h1>A</h1><h3>B</h3><h6>C</h6>",
			wantContains: []string{"<h1>A</h1>", "<h3>B</h3>", "<h6>C</h6>"},
		},
		{
			name:         "リストタグが許可される",
			input:        "<ul><li>項目1</li></ul><ol><li>項目2</li></ol>",
			wantContains: []string{"<ul>", "<ol>", "<li>項目1</li>", "<li>項目2</li>"},
		},
		{
			name:         "引用とコードブロックが許可される",
			input:        "<blockquote>引用</blockquote><pre><code>x := 1</code></pre>",
			wantContains: []string{"<blockquote>引用</blockquote>", "<pre>", "<code>", "x := 1"},
		},
		{
			name:         "強調タグが許可される",
			input:        "<strong>太字</strong><em>強調</em><b>B</b><i>I</i>",
			wantContains: []string{"<strong>太字</strong>", "<em>強調</em>", "<b>B</b>", "<i>I</i>"},
		},
		{
			name:         "figureタグが許可される",
			input:        `<figure><img src="https://example.com/a.png" alt="図"><figcaption>説明</figcaption></figure>`,
			wantContains: []string{"<figure>", "<figcaption>説明</figcaption>"},
		},
		{
			name:         "テーブルタグが許可される",
			input:        "<table><thead><tr><th>見出し</th></tr></thead><tbody><tr><td>値</td></tr></tbody></table>",
			wantContains: []string{"<table>", "<thead>", "<th>見出し</th>", "<tbody>", "<td>値</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_ForbiddenTags は危険タグと許可外タグが除去されることを検証する。
func TestSanitize_ForbiddenTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantAbsent   []string
		wantContains []string
	}{
		{
			name:         "scriptタグが除去される",
			input:        `<p>安全</p><script>alert('xss')</script>`,
			wantAbsent:   []string{"<script", "alert"},
			wantContains: []string{"<p>安全</p>"},
		},
		{
			name:       "iframeタグが除去される",
			input:      `<iframe src="https://evil.com"></iframe><p>本文</p>`,
			wantAbsent: []string{"<iframe", "evil.com"},
		},
		{
			name:       "objectタグとembedタグが除去される",
			input:      `<object data="https://evil.com/x.swf"></object><embed src="https://evil.com/y">`,
			wantAbsent: []string{"<object", "<embed"},
		},
		{
			name:       "formタグと入力要素が除去される",
			input:      `<form action="https://evil.com"><input type="password"><button>送信</button></form>`,
			wantAbsent: []string{"<form", "<input", "action="},
		},
		{
			name:         "許可外のdivタグはテキストだけ残る",
			input:        `<div class="wrapper"><p>本文</p></div>`,
			wantAbsent:   []string{"<div", "class="},
			wantContains: []string{"<p>本文</p>"},
		},
		{
			name:       "styleタグが中身ごと除去される",
			input:      `<style>body{display:none}</style><p>本文</p>`,
			wantAbsent: []string{"<style", "display:none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_EventAttributes はon*イベント属性が除去されることを検証する。
func TestSanitize_EventAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "onclickが除去される",
			input:      `<p onclick="alert('xss')">本文</p>`,
			wantAbsent: []string{"onclick", "alert"},
		},
		{
			name:       "img onerrorが除去される",
			input:      `<img src="https://example.com/a.png" onerror="alert('xss')">`,
			wantAbsent: []string{"onerror", "alert"},
		},
		{
			name:       "a onmouseoverが除去される",
			input:      `<a href="https://example.com" onmouseover="steal()">リンク</a>`,
			wantAbsent: []string{"onmouseover", "steal"},
		},
		{
			name:       "大文字混在のイベント属性も除去される",
			input:      `<p OnLoad="alert(1)">本文</p>`,
			wantAbsent: []string{"onload", "OnLoad", "alert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitize_URLSchemes はhref/src属性のスキーム制限を検証する。
// http・https・mailtoのみ許可し、javascript:やdata:は無効化する。
func TestSanitize_URLSchemes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantAbsent   []string
	}{
		{
			name:         "https hrefが許可される",
			input:        `<a href="https://example.com/page">リンク</a>`,
			wantContains: []string{"https://example.com/page"},
		},
		{
			name:         "http srcが許可される",
			input:        `<img src="http://example.com/legacy.png" alt="画像">`,
			wantContains: []string{"http://example.com/legacy.png"},
		},
		{
			name:         "mailto hrefが許可される",
			input:        `<a href="mailto:author@example.com">連絡先</a>`,
			wantContains: []string{"mailto:author@example.com"},
		},
		{
			name:       "javascript hrefが拒否される",
			input:      `<a href="javascript:alert('xss')">クリック</a>`,
			wantAbsent: []string{"javascript:"},
		},
		{
			name:       "data URI srcが拒否される",
			input:      `<img src="data:image/png;base64,abc" alt="データ">`,
			wantAbsent: []string{"data:image"},
		},
		{
			name:       "相対URLのhrefが拒否される",
			input:      `<a href="/internal/page">相対リンク</a>`,
			wantAbsent: []string{`href="/internal/page"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitize_AnchorHardening はaタグへのtarget/rel強制付与を検証する。
func TestSanitize_AnchorHardening(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<a href="https://example.com" target="_self" rel="nofollow">元記事</a>`
	got := sanitizer.Sanitize(input)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("Sanitize(%q) = %q, expected target=\"_blank\"", input, got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("Sanitize(%q) = %q, expected rel to contain noopener and noreferrer", input, got)
	}
	if strings.Contains(got, `target="_self"`) {
		t.Errorf("Sanitize(%q) = %q, should NOT contain target=\"_self\"", input, got)
	}
}

// TestSanitize_Deterministic 同一入力に対する決定性と冪等性を検証する。
// サニタイズは読み取りのたびに実行されるため、両方の性質が必要になる。
func TestSanitize_Deterministic(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<h2>見出し</h2><p>本文<strong>強調</strong></p><a href="https://example.com">リンク</a>`

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(input)
	doubled := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("決定性違反: 1回目=%q, 2回目=%q", first, second)
	}
	if first != doubled {
		t.Errorf("冪等性違反: 1回目=%q, 二重サニタイズ=%q", first, doubled)
	}
}

// TestSanitize_EmptyAndPlainText は空文字列とプレーンテキストの処理を検証する。
func TestSanitize_EmptyAndPlainText(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, expected empty string", got)
	}

	plain := "タグを含まないプレーンテキスト。"
	if got := sanitizer.Sanitize(plain); got != plain {
		t.Errorf("Sanitize(%q) = %q, expected unchanged", plain, got)
	}
}

// TestSanitize_ExtractedArticleFragment は抽出済み記事断片を模した複合入力のサニタイズを検証する。
func TestSanitize_ExtractedArticleFragment(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<h1>記事タイトル</h1>
<p>最初の段落。<strong>重要</strong>な内容を含む。</p>
<script>document.cookie</script>
<figure><img src="https://example.com/chart.png" alt="グラフ" onload="track()"><figcaption>図1</figcaption></figure>
<ul><li>ポイント1</li><li>ポイント2</li></ul>
<blockquote>引用された文章</blockquote>
<iframe src="https://ads.example.com/banner"></iframe>
<p>結びの段落。<a href="https://example.com/source" onclick="phish()">出典</a></p>`

	got := sanitizer.Sanitize(input)

	for _, want := range []string{
		"<h1>記事タイトル</h1>",
		"<strong>重要</strong>",
		"https://example.com/chart.png",
		"<figcaption>図1</figcaption>",
		"<li>ポイント1</li>",
		"<blockquote>引用された文章</blockquote>",
		"出典",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("結果に %q が含まれていない: %q", want, got)
		}
	}

	for _, absent := range []string{
		"<script", "document.cookie",
		"<iframe", "ads.example.com",
		"onload", "track()",
		"onclick", "phish()",
	} {
		if strings.Contains(got, absent) {
			t.Errorf("結果に禁止要素 %q が含まれている: %q", absent, got)
		}
	}
}

// TestContentSanitizerInterface はContentSanitizerServiceインターフェースの適合を検証する。
func TestContentSanitizerInterface(t *testing.T) {
	var _ ContentSanitizerService = NewContentSanitizer()
}
