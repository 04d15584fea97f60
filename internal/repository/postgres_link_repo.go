package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/linkstash/internal/model"
)

// PostgresLinkRepo はPostgreSQLを使用したリンクリポジトリ。
type PostgresLinkRepo struct {
	db *sql.DB
}

// NewPostgresLinkRepo はPostgresLinkRepoを生成する。
func NewPostgresLinkRepo(db *sql.DB) *PostgresLinkRepo {
	return &PostgresLinkRepo{db: db}
}

// Create はリンクを作成し、採番したIDをlink.IDに書き込む。
// 同一URLの重複チェックは意図的に行わない。同じURLの2回の取り込みは
// 独立した2レコードとなる。
func (r *PostgresLinkRepo) Create(ctx context.Context, link *model.Link) error {
	id := uuid.New().String()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO links (id, url, title, content, category, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, link.URL, link.Title, link.Content, string(link.Category), link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("リンクの保存に失敗しました: %w", err)
	}

	link.ID = id
	return nil
}

// FindByID は指定IDのリンクを取得する。見つからない場合はnilを返す。
func (r *PostgresLinkRepo) FindByID(ctx context.Context, id string) (*model.Link, error) {
	link := &model.Link{}
	var content sql.NullString
	var category string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, url, title, content, category, created_at
		 FROM links WHERE id = $1`,
		id,
	).Scan(&link.ID, &link.URL, &link.Title, &content, &category, &link.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リンクの取得に失敗しました: %w", err)
	}

	link.Content = nullStringValue(content)
	link.Category = model.Category(category)
	return link, nil
}

// ListAll は全リンクをcreated_at降順で返す。
func (r *PostgresLinkRepo) ListAll(ctx context.Context) ([]*model.Link, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, title, content, category, created_at
		 FROM links ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("リンク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// ListByCategory は指定カテゴリのリンクをcreated_at降順で返す。
func (r *PostgresLinkRepo) ListByCategory(ctx context.Context, category model.Category) ([]*model.Link, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, title, content, category, created_at
		 FROM links WHERE category = $1 ORDER BY created_at DESC`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ別リンク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// scanLinks は結果行をLinkのスライスに変換する。
func scanLinks(rows *sql.Rows) ([]*model.Link, error) {
	var links []*model.Link
	for rows.Next() {
		link := &model.Link{}
		var content sql.NullString
		var category string

		if err := rows.Scan(&link.ID, &link.URL, &link.Title, &content, &category, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("リンク行の読み取りに失敗しました: %w", err)
		}

		link.Content = nullStringValue(content)
		link.Category = model.Category(category)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リンク一覧の走査に失敗しました: %w", err)
	}
	return links, nil
}

// nullStringValue はsql.NullStringから値を取り出す。NULLの場合は空文字列。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
