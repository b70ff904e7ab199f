package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresRoleRepo はPostgreSQLを使用したロールリポジトリ。
type PostgresRoleRepo struct {
	db *sql.DB
}

// NewPostgresRoleRepo はPostgresRoleRepoを生成する。
func NewPostgresRoleRepo(db *sql.DB) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: db}
}

// FindByName はロール名でロールを検索する。見つからない場合はnilを返す。
func (r *PostgresRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	role := &model.Role{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM roles WHERE name = $1`,
		name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role by name: %w", err)
	}

	return role, nil
}

// Assign はユーザーにロールを付与する。取り消し済みの付与が存在する場合はactiveに戻す。
func (r *PostgresRoleRepo) Assign(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (id, user_id, role_id, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, role_id)
		 DO UPDATE SET status = $4, assigned_at = now(), revoked_at = NULL`,
		uuid.New().String(), userID, roleID, model.UserRoleStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// Revoke はユーザーのロール付与をrevokedに変更する。行自体は残す。
func (r *PostgresRoleRepo) Revoke(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_roles SET status = $1, revoked_at = now()
		 WHERE user_id = $2 AND role_id = $3`,
		model.UserRoleStatusRevoked, userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// ListByUserID はユーザーへの全ロール付与をロール名付きで返す。
func (r *PostgresRoleRepo) ListByUserID(ctx context.Context, userID string) ([]model.UserRole, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ur.id, ur.user_id, ur.role_id, ro.name, ur.status, ur.assigned_at, ur.revoked_at
		 FROM user_roles ur
		 JOIN roles ro ON ro.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY ur.assigned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var roles []model.UserRole
	for rows.Next() {
		var ur model.UserRole
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.RoleID, &ur.RoleName, &ur.Status, &ur.AssignedAt, &ur.RevokedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		roles = append(roles, ur)
	}

	return roles, rows.Err()
}

// compile-time interface check
var _ RoleRepository = (*PostgresRoleRepo)(nil)
