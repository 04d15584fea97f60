// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// NoTitleSentinel はタイトルが抽出できなかった場合のフォールバック値。
const NoTitleSentinel = "No title found"

// Link は取り込まれたWebページの記録を表す。
// 1回のURL送信から同期的に作成され、以降更新されない。
type Link struct {
	ID        string
	URL       string
	Title     string
	Content   string // 未サニタイズの抽出済みHTML断片。サニタイズは読み取り時に行う
	Category  Category
	CreatedAt time.Time
}

// Category は閉じたカテゴリ集合のラベルを表す。
type Category string

// カテゴリの閉集合。変更はCategorizerとフロントエンドのフィルタUIの
// 両方に影響する契約変更であり、保存済みデータの自動再分類は行わない。
const (
	CategoryTechnology   Category = "Technology"
	CategoryHistory      Category = "History"
	CategoryHealth       Category = "Health & Wellness"
	CategoryScience      Category = "Science"
	CategoryBusiness     Category = "Business & Finance"
	CategoryArts         Category = "Arts & Culture"
	CategoryProductivity Category = "Productivity"
	CategoryOther        Category = "Other"
)

// AllCategories は全カテゴリを定義順に返す。
func AllCategories() []Category {
	return []Category{
		CategoryTechnology,
		CategoryHistory,
		CategoryHealth,
		CategoryScience,
		CategoryBusiness,
		CategoryArts,
		CategoryProductivity,
		CategoryOther,
	}
}

// IsValid はカテゴリが閉集合に含まれるかを検証する。
func (c Category) IsValid() bool {
	for _, v := range AllCategories() {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory は文字列をCategoryに変換する。
// 分類バックエンドはラベルの前後に空白や改行を付けて返すことがあるため、
// 前後の空白を除去してから照合する。閉集合に含まれない場合はfalseを返す。
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.TrimSpace(s))
	if c.IsValid() {
		return c, true
	}
	return "", false
}
