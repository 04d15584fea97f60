// Package fetch はWebページのHTTPフェッチを提供する。
//
// Fetcherは取り込みパイプラインの最初のステージであり、
// パイプライン全体を中断させうる唯一のステージでもある。
// 取得したバイト列の解釈（パース・抽出）は行わない。
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/linkstash/internal/model"
)

// browserUserAgent は送信するUser-Agentヘッダー。
// 無名クライアントを拒否するサーバーでもフェッチが成功するよう、
// 一般的なブラウザのUA文字列を使用する。
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// RawPage はフェッチ結果の生ページを表す。
type RawPage struct {
	URL         string
	Body        []byte
	ContentType string // レスポンスのContent-Typeヘッダー（charset判定に使用）
	StatusCode  int
}

// ClientProvider はHTTPクライアント生成と送信前URL検証のインターフェース。
// 本番でSSRF防止が有効な場合はsecurity.SSRFGuardServiceを、
// それ以外では素のhttp.Clientを返すプロバイダを注入する。
// レスポンスサイズの上限はFetcher側でio.LimitReaderにより適用される。
type ClientProvider interface {
	NewSafeClient(timeout time.Duration) *http.Client
	ValidateURL(rawURL string) error
}

// plainClientProvider はSSRF防止なしの素のHTTPクライアントを生成する。
// スキーム/ホストの制限は将来のハードニングで必須化する想定のため、
// デフォルトではこちらが使用される。
type plainClientProvider struct{}

// NewSafeClient はタイムアウトのみ設定した素のhttp.Clientを返す。
func (plainClientProvider) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// ValidateURL は検証を行わない。URL形式の検証は取り込み側で行われる。
func (plainClientProvider) ValidateURL(rawURL string) error {
	return nil
}

// NewPlainClientProvider はSSRF防止なしのClientProviderを返す。
func NewPlainClientProvider() ClientProvider {
	return plainClientProvider{}
}

// Fetcher はURLからページ本体を取得する。
// リトライは行わない。フェッチ失敗は取り込み全体の失敗となる。
type Fetcher struct {
	clients     ClientProvider
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(clients ClientProvider, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		clients:     clients,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は指定URLにGETリクエストを送信し、生ページを返す。
// SSRF防止が有効な場合、URL検証で拒否されたリクエストは
// model.ErrCodeSSRFBlockedのAPIErrorとして送信前に失敗する。
// トランスポート障害・タイムアウト・非2xxステータスはすべて
// model.ErrCodeFetchFailedのAPIErrorとして返す。
// 呼び出し元のコンテキストキャンセルはリクエストに伝播する。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*RawPage, error) {
	if err := f.clients.ValidateURL(rawURL); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	client := f.clients.NewSafeClient(f.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewFetchFailedError(
			fmt.Sprintf("HTTPステータス %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}

	return &RawPage{
		URL:         rawURL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
