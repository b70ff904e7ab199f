package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresCareerRepo はPostgreSQLを使用した職歴リポジトリ。
// 職級・職種カタログも扱う。
type PostgresCareerRepo struct {
	db *sql.DB
}

// NewPostgresCareerRepo はPostgresCareerRepoを生成する。
func NewPostgresCareerRepo(db *sql.DB) *PostgresCareerRepo {
	return &PostgresCareerRepo{db: db}
}

const careerSelect = `
	SELECT id, user_id, company, job_rank_id, occupation_id,
	       started_at, ended_at, is_current, created_at, updated_at
	FROM careers`

func scanCareer(row interface{ Scan(...any) error }) (*model.Career, error) {
	c := &model.Career{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.Company, &c.JobRankID, &c.OccupationID,
		&c.StartedAt, &c.EndedAt, &c.IsCurrent, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByUserID はユーザーの職歴一覧を開始日の新しい順で返す。
func (r *PostgresCareerRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Career, error) {
	rows, err := r.db.QueryContext(ctx,
		careerSelect+` WHERE user_id = $1 ORDER BY started_at DESC NULLS LAST`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list careers: %w", err)
	}
	defer rows.Close()

	var careers []*model.Career
	for rows.Next() {
		career, err := scanCareer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan career: %w", err)
		}
		careers = append(careers, career)
	}

	return careers, rows.Err()
}

// FindByID は指定IDの職歴を取得する。見つからない場合はnilを返す。
func (r *PostgresCareerRepo) FindByID(ctx context.Context, id string) (*model.Career, error) {
	row := r.db.QueryRowContext(ctx, careerSelect+` WHERE id = $1`, id)

	career, err := scanCareer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find career by ID: %w", err)
	}

	return career, nil
}

// Create は職歴を作成する。
func (r *PostgresCareerRepo) Create(ctx context.Context, career *model.Career) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO careers (id, user_id, company, job_rank_id, occupation_id, started_at, ended_at, is_current)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		career.ID, career.UserID, career.Company, career.JobRankID, career.OccupationID,
		career.StartedAt, career.EndedAt, career.IsCurrent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert career: %w", err)
	}
	return nil
}

// Update は職歴を更新する。
func (r *PostgresCareerRepo) Update(ctx context.Context, career *model.Career) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE careers
		 SET company = $1, job_rank_id = $2, occupation_id = $3,
		     started_at = $4, ended_at = $5, is_current = $6, updated_at = now()
		 WHERE id = $7`,
		career.Company, career.JobRankID, career.OccupationID,
		career.StartedAt, career.EndedAt, career.IsCurrent, career.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update career: %w", err)
	}
	return nil
}

// Delete は指定IDの職歴を削除する。
func (r *PostgresCareerRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM careers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete career: %w", err)
	}
	return nil
}

// ListJobRanks は職級カタログをsort_order順で返す。
func (r *PostgresCareerRepo) ListJobRanks(ctx context.Context) ([]*model.JobRank, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, sort_order, created_at, updated_at FROM job_ranks ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job ranks: %w", err)
	}
	defer rows.Close()

	var ranks []*model.JobRank
	for rows.Next() {
		rank := &model.JobRank{}
		if err := rows.Scan(&rank.ID, &rank.Name, &rank.SortOrder, &rank.CreatedAt, &rank.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job rank: %w", err)
		}
		ranks = append(ranks, rank)
	}

	return ranks, rows.Err()
}

// CreateJobRank は職級を作成する（管理者用）。
func (r *PostgresCareerRepo) CreateJobRank(ctx context.Context, rank *model.JobRank) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO job_ranks (id, name, sort_order) VALUES ($1, $2, $3)`,
		rank.ID, rank.Name, rank.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job rank: %w", err)
	}
	return nil
}

// DeleteJobRank は職級を削除する（管理者用）。
func (r *PostgresCareerRepo) DeleteJobRank(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM job_ranks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job rank: %w", err)
	}
	return nil
}

// ListOccupations は職種カタログを返す。
// primaryOnlyがtrueの場合は大分類のみ、parentIDが指定された場合はその小分類のみ返す。
func (r *PostgresCareerRepo) ListOccupations(ctx context.Context, primaryOnly bool, parentID string) ([]*model.Occupation, error) {
	query := `SELECT id, name, is_primary, parent_id, created_at, updated_at FROM occupations`
	args := []any{}
	switch {
	case primaryOnly:
		query += ` WHERE is_primary = true`
	case parentID != "":
		query += ` WHERE parent_id = $1`
		args = append(args, parentID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupations: %w", err)
	}
	defer rows.Close()

	var occupations []*model.Occupation
	for rows.Next() {
		occ := &model.Occupation{}
		if err := rows.Scan(&occ.ID, &occ.Name, &occ.Primary, &occ.ParentID, &occ.CreatedAt, &occ.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan occupation: %w", err)
		}
		occupations = append(occupations, occ)
	}

	return occupations, rows.Err()
}

// CreateOccupation は職種を作成する（管理者用）。
func (r *PostgresCareerRepo) CreateOccupation(ctx context.Context, occupation *model.Occupation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO occupations (id, name, is_primary, parent_id) VALUES ($1, $2, $3, $4)`,
		occupation.ID, occupation.Name, occupation.Primary, occupation.ParentID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert occupation: %w", err)
	}
	return nil
}

// DeleteOccupation は職種を削除する（管理者用）。小分類はCASCADE削除される。
func (r *PostgresCareerRepo) DeleteOccupation(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM occupations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete occupation: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CareerRepository = (*PostgresCareerRepo)(nil)
