package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userSelectBase = `
	SELECT u.id, u.email, u.is_marketing, u.last_active_at, u.created_at, u.updated_at,
	       p.id, p.name, p.image, p.phone, p.birth_date, p.career_goal, p.expect_salary
	FROM users u
	LEFT JOIN profiles p ON p.user_id = u.id`

// scanUserRow は users LEFT JOIN profiles の1行をスキャンする。
func scanUserRow(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var (
		profileID    sql.NullString
		name         sql.NullString
		image        sql.NullString
		phone        sql.NullString
		birthDate    sql.NullString
		careerGoal   sql.NullString
		expectSalary sql.NullInt64
	)

	err := row.Scan(
		&user.ID, &user.Email, &user.IsMarketing, &user.LastActiveAt, &user.CreatedAt, &user.UpdatedAt,
		&profileID, &name, &image, &phone, &birthDate, &careerGoal, &expectSalary,
	)
	if err != nil {
		return nil, err
	}

	if profileID.Valid {
		user.Profile = &model.Profile{
			ID:           profileID.String,
			UserID:       user.ID,
			Name:         name.String,
			Image:        image.String,
			Phone:        phone.String,
			BirthDate:    birthDate.String,
			CareerGoal:   careerGoal.String,
			ExpectSalary: int(expectSalary.Int64),
		}
	}

	return user, nil
}

// loadRoles はユーザーのロール付与を読み込んでUserに設定する。
func (r *PostgresUserRepo) loadRoles(ctx context.Context, user *model.User) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ur.id, ur.user_id, ur.role_id, ro.name, ur.status, ur.assigned_at, ur.revoked_at
		 FROM user_roles ur
		 JOIN roles ro ON ro.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY ur.assigned_at`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ur model.UserRole
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.RoleID, &ur.RoleName, &ur.Status, &ur.AssignedAt, &ur.RevokedAt); err != nil {
			return fmt.Errorf("failed to scan user role: %w", err)
		}
		user.Roles = append(user.Roles, ur)
	}

	return rows.Err()
}

// FindByID は指定IDのユーザーをプロフィールとロール付きで取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, userSelectBase+` WHERE u.id = $1`, id)

	user, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	if err := r.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, userSelectBase+` WHERE u.email = $1`, email)

	user, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := r.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// FindByEmailWithPassword は認証用にPasswordHashを含めてユーザーを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return user, err
	}

	var passwordHash sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE id = $1`,
		user.ID,
	).Scan(&passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load password hash: %w", err)
	}
	user.PasswordHash = passwordHash.String

	return user, nil
}

// FindByProviderUser は(プロバイダー名, プロバイダー側ユーザーID)でユーザーを検索する。
// 紐付くセッションがない場合はnilを返す。
func (r *PostgresUserRepo) FindByProviderUser(ctx context.Context, providerName, providerUserID string) (*model.User, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT s.user_id
		 FROM user_oauth_sessions s
		 JOIN oauth_providers op ON op.id = s.provider_id
		 WHERE op.name = $1 AND s.provider_user_id = $2
		 LIMIT 1`,
		providerName, providerUserID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider user: %w", err)
	}

	return r.FindByID(ctx, userID)
}

// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var passwordHash sql.NullString
	if user.PasswordHash != "" {
		passwordHash = sql.NullString{String: user.PasswordHash, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_marketing)
		 VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, passwordHash, user.IsMarketing,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, name, image, phone, birth_date, career_goal, expect_salary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		profile.ID, user.ID, profile.Name, profile.Image, profile.Phone,
		profile.BirthDate, profile.CareerGoal, profile.ExpectSalary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateProfile はプロフィール情報を更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET name = $1, image = $2, phone = $3, birth_date = $4,
		     career_goal = $5, expect_salary = $6, updated_at = now()
		 WHERE user_id = $7`,
		profile.Name, profile.Image, profile.Phone, profile.BirthDate,
		profile.CareerGoal, profile.ExpectSalary, profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateMarketing はマーケティング同意フラグを更新する。
func (r *PostgresUserRepo) UpdateMarketing(ctx context.Context, userID string, isMarketing bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_marketing = $1, updated_at = now() WHERE id = $2`,
		isMarketing, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update marketing flag: %w", err)
	}
	return nil
}

// UpdateLastActive は最終アクティブ日時を現在時刻に更新する。
func (r *PostgresUserRepo) UpdateLastActive(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

// List はユーザー一覧をページ指定で返す（管理者用）。
func (r *PostgresUserRepo) List(ctx context.Context, offset, limit int) ([]*model.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		userSelectBase+` ORDER BY u.created_at DESC OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するprofiles、user_roles、user_oauth_sessions等はCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
