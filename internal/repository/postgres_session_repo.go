package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Upsert は(user_id, device_id)でセッションを作成または上書きする。
// 既存行がある場合はトークン素材とプロバイダー情報を新しい値で置き換えるため、
// 同一デバイスからの再ログインで以前のリフレッシュトークンは即座に無効になる。
func (r *PostgresSessionRepo) Upsert(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_oauth_sessions
		     (id, user_id, provider_id, device_id, provider_user_id, refresh_token_hash, refresh_token_exp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, device_id)
		 DO UPDATE SET
		     provider_id = $3,
		     provider_user_id = $5,
		     refresh_token_hash = $6,
		     refresh_token_exp = $7,
		     updated_at = now()`,
		session.ID, session.UserID, session.ProviderID, session.DeviceID,
		session.ProviderUserID, session.RefreshTokenHash, session.RefreshTokenExp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// FindByUserAndDevice は(user_id, device_id)でセッションを取得する。
// 見つからない場合はnilを返す。ログアウト済みの行（トークン素材がNULL）も返す。
func (r *PostgresSessionRepo) FindByUserAndDevice(ctx context.Context, userID, deviceID string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.provider_id, p.name, s.device_id,
		        s.provider_user_id, s.refresh_token_hash, s.refresh_token_exp,
		        s.created_at, s.updated_at
		 FROM user_oauth_sessions s
		 JOIN oauth_providers p ON p.id = s.provider_id
		 WHERE s.user_id = $1 AND s.device_id = $2`,
		userID, deviceID,
	).Scan(
		&session.ID, &session.UserID, &session.ProviderID, &session.ProviderName, &session.DeviceID,
		&session.ProviderUserID, &session.RefreshTokenHash, &session.RefreshTokenExp,
		&session.CreatedAt, &session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// Revoke はセッションのトークン素材をNULLにする。行自体は残す。
// 対象行が存在しなくてもエラーにしない。
func (r *PostgresSessionRepo) Revoke(ctx context.Context, userID, deviceID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_oauth_sessions
		 SET refresh_token_hash = NULL, refresh_token_exp = NULL, updated_at = now()
		 WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAllByUserID は指定ユーザーの全セッションを無効化する。
func (r *PostgresSessionRepo) RevokeAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_oauth_sessions
		 SET refresh_token_hash = NULL, refresh_token_exp = NULL, updated_at = now()
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// RevokeExpired は期限切れのセッションのトークン素材をNULLにし、件数を返す。
func (r *PostgresSessionRepo) RevokeExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_oauth_sessions
		 SET refresh_token_hash = NULL, refresh_token_exp = NULL, updated_at = now()
		 WHERE refresh_token_exp IS NOT NULL AND refresh_token_exp < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
