package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresProviderRepo はPostgreSQLを使用したプロバイダーカタログリポジトリ。
type PostgresProviderRepo struct {
	db *sql.DB
}

// NewPostgresProviderRepo はPostgresProviderRepoを生成する。
func NewPostgresProviderRepo(db *sql.DB) *PostgresProviderRepo {
	return &PostgresProviderRepo{db: db}
}

// FindByName はプロバイダー名でカタログ行を検索する。見つからない場合はnilを返す。
func (r *PostgresProviderRepo) FindByName(ctx context.Context, name string) (*model.OAuthProvider, error) {
	provider := &model.OAuthProvider{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM oauth_providers WHERE name = $1`,
		name,
	).Scan(&provider.ID, &provider.Name, &provider.Description, &provider.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find provider by name: %w", err)
	}

	return provider, nil
}

// compile-time interface check
var _ ProviderRepository = (*PostgresProviderRepo)(nil)
