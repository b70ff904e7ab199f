package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/careerhub/internal/model"
)

// PostgresAdvertisementRepo はPostgreSQLを使用した広告リポジトリ。
type PostgresAdvertisementRepo struct {
	db *sql.DB
}

// NewPostgresAdvertisementRepo はPostgresAdvertisementRepoを生成する。
func NewPostgresAdvertisementRepo(db *sql.DB) *PostgresAdvertisementRepo {
	return &PostgresAdvertisementRepo{db: db}
}

const adSelect = `
	SELECT id, ad_number, image_pc, image_mobile, link, COALESCE(memo, ''), created_at, updated_at
	FROM advertisements`

func scanAd(row interface{ Scan(...any) error }) (*model.Advertisement, error) {
	ad := &model.Advertisement{}
	err := row.Scan(
		&ad.ID, &ad.AdNumber, &ad.ImagePC, &ad.ImageMobile, &ad.Link,
		&ad.Memo, &ad.CreatedAt, &ad.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// FindByID は指定IDの広告を取得する。見つからない場合はnilを返す。
func (r *PostgresAdvertisementRepo) FindByID(ctx context.Context, id string) (*model.Advertisement, error) {
	row := r.db.QueryRowContext(ctx, adSelect+` WHERE id = $1`, id)

	ad, err := scanAd(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find advertisement by ID: %w", err)
	}

	return ad, nil
}

// ListByAdNumber は指定スロット番号の広告一覧を返す。
func (r *PostgresAdvertisementRepo) ListByAdNumber(ctx context.Context, adNumber int) ([]*model.Advertisement, error) {
	rows, err := r.db.QueryContext(ctx,
		adSelect+` WHERE ad_number = $1 ORDER BY created_at DESC`,
		adNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list advertisements: %w", err)
	}
	defer rows.Close()

	return collectAds(rows)
}

// ListAll は全広告をスロット番号順で返す（管理者用）。
func (r *PostgresAdvertisementRepo) ListAll(ctx context.Context) ([]*model.Advertisement, error) {
	rows, err := r.db.QueryContext(ctx, adSelect+` ORDER BY ad_number, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list all advertisements: %w", err)
	}
	defer rows.Close()

	return collectAds(rows)
}

func collectAds(rows *sql.Rows) ([]*model.Advertisement, error) {
	var ads []*model.Advertisement
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advertisement: %w", err)
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

// Create は広告を作成する。
func (r *PostgresAdvertisementRepo) Create(ctx context.Context, ad *model.Advertisement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO advertisements (id, ad_number, image_pc, image_mobile, link, memo)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ad.ID, ad.AdNumber, ad.ImagePC, ad.ImageMobile, ad.Link, ad.Memo,
	)
	if err != nil {
		return fmt.Errorf("failed to insert advertisement: %w", err)
	}
	return nil
}

// Update は広告を更新する。
func (r *PostgresAdvertisementRepo) Update(ctx context.Context, ad *model.Advertisement) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE advertisements
		 SET ad_number = $1, image_pc = $2, image_mobile = $3, link = $4, memo = $5, updated_at = now()
		 WHERE id = $6`,
		ad.AdNumber, ad.ImagePC, ad.ImageMobile, ad.Link, ad.Memo, ad.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update advertisement: %w", err)
	}
	return nil
}

// Delete は指定IDの広告を削除する。
func (r *PostgresAdvertisementRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM advertisements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AdvertisementRepository = (*PostgresAdvertisementRepo)(nil)
