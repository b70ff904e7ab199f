package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// articleSelect は記事に作成者名と閲覧者の保存フラグを付けて取得する。
// $1には閲覧者ID（未認証時は空文字）を渡す。
const articleSelect = `
	SELECT a.id, a.user_id, a.title, a.content, COALESCE(a.thumbnail, ''),
	       a.view_count, a.created_at, a.updated_at,
	       COALESCE(p.name, ''),
	       EXISTS (SELECT 1 FROM saved_articles sa WHERE sa.article_id = a.id AND sa.user_id::text = $1)
	FROM articles a
	LEFT JOIN profiles p ON p.user_id = a.user_id`

func scanArticle(row interface{ Scan(...any) error }) (*model.Article, error) {
	a := &model.Article{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.Title, &a.Content, &a.Thumbnail,
		&a.ViewCount, &a.CreatedAt, &a.UpdatedAt,
		&a.AuthorName, &a.Saved,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindByID は指定IDの記事を作成者名付きで取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id, viewerID string) (*model.Article, error) {
	row := r.db.QueryRowContext(ctx, articleSelect+` WHERE a.id = $2`, viewerID, id)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article by ID: %w", err)
	}

	return article, nil
}

// List は記事一覧を新しい順で返す。keywordが空でない場合タイトルで部分一致検索する。
func (r *PostgresArticleRepo) List(ctx context.Context, keyword string, offset, limit int, viewerID string) ([]*model.Article, int, error) {
	where := ""
	countArgs := []any{}
	if keyword != "" {
		where = ` WHERE a.title ILIKE '%' || $1 || '%'`
		countArgs = append(countArgs, keyword)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM articles a`+where, countArgs...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	query := articleSelect
	args := []any{viewerID}
	if keyword != "" {
		query += ` WHERE a.title ILIKE '%' || $2 || '%' ORDER BY a.created_at DESC OFFSET $3 LIMIT $4`
		args = append(args, keyword, offset, limit)
	} else {
		query += ` ORDER BY a.created_at DESC OFFSET $2 LIMIT $3`
		args = append(args, offset, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, total, nil
}

// ListByAuthor は指定ユーザーが作成した記事一覧を新しい順で返す。
// 作成者自身の閲覧として保存フラグも作成者視点で埋める。
func (r *PostgresArticleRepo) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Article, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM articles WHERE user_id = $1`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles by author: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		articleSelect+` WHERE a.user_id::text = $1 ORDER BY a.created_at DESC OFFSET $2 LIMIT $3`,
		authorID, offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles by author: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, total, nil
}

// Create は記事を作成する。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, user_id, title, content, thumbnail)
		 VALUES ($1, $2, $3, $4, $5)`,
		article.ID, article.UserID, article.Title, article.Content, article.Thumbnail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// Update は記事のタイトル・本文・サムネイルを更新する。
func (r *PostgresArticleRepo) Update(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET title = $1, content = $2, thumbnail = $3, updated_at = now()
		 WHERE id = $4`,
		article.Title, article.Content, article.Thumbnail, article.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	return nil
}

// Delete は指定IDの記事を削除する。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// IncrementViewCount は閲覧数を1増やす。
func (r *PostgresArticleRepo) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// Save は記事をユーザーの保存リストに追加する。
func (r *PostgresArticleRepo) Save(ctx context.Context, userID, articleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_articles (id, user_id, article_id) VALUES ($1, $2, $3)`,
		uuid.New().String(), userID, articleID,
	)
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

// Unsave は記事をユーザーの保存リストから削除する。
func (r *PostgresArticleRepo) Unsave(ctx context.Context, userID, articleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_articles WHERE user_id = $1 AND article_id = $2`,
		userID, articleID,
	)
	if err != nil {
		return fmt.Errorf("failed to unsave article: %w", err)
	}
	return nil
}

// ListSavedByUser はユーザーが保存した記事一覧を保存の新しい順で返す。
func (r *PostgresArticleRepo) ListSavedByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Article, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM saved_articles WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count saved articles: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		articleSelect+`
		 JOIN saved_articles sa2 ON sa2.article_id = a.id AND sa2.user_id::text = $1
		 ORDER BY sa2.created_at DESC OFFSET $2 LIMIT $3`,
		userID, offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list saved articles: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan saved article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate saved articles: %w", err)
	}

	return articles, total, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
