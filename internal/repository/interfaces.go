// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/linkstash/internal/model"
)

// LinkRepository はリンクデータの永続化インターフェース。
// 取り込みパイプラインからは不透明なコラボレータとして扱われ、
// 単一レコードのアトミックな挿入と一覧の read-after-write 一貫性を
// 提供することだけが仮定される。レコード横断のトランザクションは不要。
type LinkRepository interface {
	// Create はリンクを作成し、link.IDに採番したIDを書き込む。
	// IDの採番はストレージ側の責務であり、コアは決して生成しない。
	Create(ctx context.Context, link *model.Link) error

	// FindByID は指定IDのリンクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Link, error)

	// ListAll は全リンクをcreated_at降順（新しい順）で返す。
	ListAll(ctx context.Context) ([]*model.Link, error)

	// ListByCategory は指定カテゴリのリンクをcreated_at降順で返す。
	// カテゴリフィルタは読み取り側の純粋なクエリであり、相対順序は
	// ListAllと同一になる。
	ListByCategory(ctx context.Context, category model.Category) ([]*model.Link, error)
}
