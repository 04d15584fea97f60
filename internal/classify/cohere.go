package classify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// cohereRequestTimeout はCohere APIへのHTTPリクエスト全体のタイムアウト。
// Categorizer側のコンテキストタイムアウトとは独立したセーフティネット。
const cohereRequestTimeout = 30 * time.Second

// CohereBackend はCohere Classify APIを使用するBackend実装。
// few-shot例を使ってカテゴリ閉集合のラベルへ分類する。
type CohereBackend struct {
	client *cohereclient.Client
	model  string
}

// NewCohereBackend はCohereBackendの新しいインスタンスを生成する。
// modelが空の場合はAPI側のデフォルトモデルを使用する。
func NewCohereBackend(apiKey, model string) *CohereBackend {
	httpClient := &http.Client{Timeout: cohereRequestTimeout}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereBackend{client: client, model: model}
}

// classifyExamples はカテゴリごとのfew-shot例。
// Cohere Classify APIはラベルごとに最低2例を要求する。
var classifyExamples = []struct {
	text  string
	label string
}{
	{"New Go compiler release improves build times by 30 percent", "Technology"},
	{"How large language models are trained on GPU clusters", "Technology"},
	{"The fall of the Roman Empire and its economic causes", "History"},
	{"Letters from soldiers during the First World War", "History"},
	{"Ten evidence-based ways to improve your sleep quality", "Health & Wellness"},
	{"What strength training does to aging muscles", "Health & Wellness"},
	{"Astronomers observe water vapor on a distant exoplanet", "Science"},
	{"CRISPR gene editing explained for non-biologists", "Science"},
	{"Why central banks are raising interest rates again", "Business & Finance"},
	{"A beginner's guide to index fund investing", "Business & Finance"},
	{"Inside the restoration of a 17th century Dutch painting", "Arts & Culture"},
	{"The influence of jazz on modern film scores", "Arts & Culture"},
	{"How to plan your week with time blocking", "Productivity"},
	{"Inbox zero is a system, not a goal", "Productivity"},
	{"Recipe collection: weeknight pasta dishes", "Other"},
	{"Travel notes from a month in Portugal", "Other"},
}

// Classify はテキストをCohere Classify APIで分類する。
// 最初の分類結果の予測ラベルと信頼度を返す。
func (b *CohereBackend) Classify(ctx context.Context, text string) (string, float64, error) {
	examples := make([]*cohere.ClassifyExample, 0, len(classifyExamples))
	for _, ex := range classifyExamples {
		examples = append(examples, &cohere.ClassifyExample{
			Text:  strPtr(ex.text),
			Label: strPtr(ex.label),
		})
	}

	req := &cohere.ClassifyRequest{
		Inputs:   []string{text},
		Examples: examples,
	}
	if b.model != "" {
		req.Model = strPtr(b.model)
	}

	resp, err := b.client.Classify(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("cohere classify error: %w", err)
	}
	if resp == nil || len(resp.Classifications) == 0 {
		return "", 0, fmt.Errorf("cohere classify returned no classifications")
	}

	result := resp.Classifications[0]
	if result.Prediction == nil {
		return "", 0, fmt.Errorf("cohere classify returned no prediction")
	}

	confidence := 1.0
	if result.Confidence != nil {
		confidence = *result.Confidence
	}
	return *result.Prediction, confidence, nil
}

func strPtr(s string) *string {
	return &s
}
