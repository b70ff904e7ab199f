// Package career は職歴と職級/職種カタログのドメインロジックを提供する。
package career

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
)

// CareerInput は職歴の作成・更新の入力。
type CareerInput struct {
	Company      string
	JobRankID    *string
	OccupationID *string
	StartedAt    *time.Time
	EndedAt      *time.Time
	IsCurrent    bool
}

// Service は職歴のサービス層。
// 本人の職歴CRUDと、管理者が管理する職級/職種カタログの操作を提供する。
type Service struct {
	careerRepo repository.CareerRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(careerRepo repository.CareerRepository) *Service {
	return &Service{careerRepo: careerRepo}
}

// ListMine はユーザー自身の職歴一覧を開始日の新しい順で返す。
func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.Career, error) {
	careers, err := s.careerRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("職歴一覧の取得に失敗しました: %w", err)
	}
	return careers, nil
}

// Create は職歴を作成する。職歴は作成者本人にのみ属する。
func (s *Service) Create(ctx context.Context, userID string, input CareerInput) (*model.Career, error) {
	career := &model.Career{
		ID:           uuid.New().String(),
		UserID:       userID,
		Company:      input.Company,
		JobRankID:    input.JobRankID,
		OccupationID: input.OccupationID,
		StartedAt:    input.StartedAt,
		EndedAt:      input.EndedAt,
		IsCurrent:    input.IsCurrent,
	}

	if err := s.careerRepo.Create(ctx, career); err != nil {
		return nil, fmt.Errorf("職歴の作成に失敗しました: %w", err)
	}

	created, err := s.careerRepo.FindByID(ctx, career.ID)
	if err != nil {
		return nil, fmt.Errorf("作成した職歴の取得に失敗しました: %w", err)
	}

	return created, nil
}

// Update は職歴を更新する。本人の職歴以外はCAREER_NOT_FOUNDとして扱う。
func (s *Service) Update(ctx context.Context, userID, careerID string, input CareerInput) (*model.Career, error) {
	career, err := s.findOwned(ctx, userID, careerID)
	if err != nil {
		return nil, err
	}

	career.Company = input.Company
	career.JobRankID = input.JobRankID
	career.OccupationID = input.OccupationID
	career.StartedAt = input.StartedAt
	career.EndedAt = input.EndedAt
	career.IsCurrent = input.IsCurrent

	if err := s.careerRepo.Update(ctx, career); err != nil {
		return nil, fmt.Errorf("職歴の更新に失敗しました: %w", err)
	}

	updated, err := s.careerRepo.FindByID(ctx, careerID)
	if err != nil {
		return nil, fmt.Errorf("更新した職歴の取得に失敗しました: %w", err)
	}

	return updated, nil
}

// Delete は職歴を削除する。本人の職歴以外はCAREER_NOT_FOUNDとして扱う。
func (s *Service) Delete(ctx context.Context, userID, careerID string) error {
	if _, err := s.findOwned(ctx, userID, careerID); err != nil {
		return err
	}

	if err := s.careerRepo.Delete(ctx, careerID); err != nil {
		return fmt.Errorf("職歴の削除に失敗しました: %w", err)
	}

	return nil
}

// findOwned は本人の職歴を取得する。
// 存在しない場合と他人の職歴の場合を区別せずCAREER_NOT_FOUNDを返す。
func (s *Service) findOwned(ctx context.Context, userID, careerID string) (*model.Career, error) {
	career, err := s.careerRepo.FindByID(ctx, careerID)
	if err != nil {
		return nil, fmt.Errorf("職歴の取得に失敗しました: %w", err)
	}
	if career == nil || career.UserID != userID {
		return nil, model.NewCareerNotFoundError(careerID)
	}
	return career, nil
}

// ListJobRanks は職級カタログをsort_order順で返す。
func (s *Service) ListJobRanks(ctx context.Context) ([]*model.JobRank, error) {
	ranks, err := s.careerRepo.ListJobRanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("職級カタログの取得に失敗しました: %w", err)
	}
	return ranks, nil
}

// CreateJobRank は職級を作成する（管理者用）。
func (s *Service) CreateJobRank(ctx context.Context, name string, sortOrder int) (*model.JobRank, error) {
	rank := &model.JobRank{
		ID:        uuid.New().String(),
		Name:      name,
		SortOrder: sortOrder,
	}

	if err := s.careerRepo.CreateJobRank(ctx, rank); err != nil {
		return nil, fmt.Errorf("職級の作成に失敗しました: %w", err)
	}

	return rank, nil
}

// DeleteJobRank は職級を削除する（管理者用）。
// 参照している職歴のjob_rank_idはNULLになる。
func (s *Service) DeleteJobRank(ctx context.Context, id string) error {
	if err := s.careerRepo.DeleteJobRank(ctx, id); err != nil {
		return fmt.Errorf("職級の削除に失敗しました: %w", err)
	}
	return nil
}

// ListPrimaryOccupations は職種カタログの大分類のみを返す。
func (s *Service) ListPrimaryOccupations(ctx context.Context) ([]*model.Occupation, error) {
	occupations, err := s.careerRepo.ListOccupations(ctx, true, "")
	if err != nil {
		return nil, fmt.Errorf("職種カタログの取得に失敗しました: %w", err)
	}
	return occupations, nil
}

// ListSecondaryOccupations は指定した大分類に属する小分類を返す。
func (s *Service) ListSecondaryOccupations(ctx context.Context, parentID string) ([]*model.Occupation, error) {
	occupations, err := s.careerRepo.ListOccupations(ctx, false, parentID)
	if err != nil {
		return nil, fmt.Errorf("職種カタログの取得に失敗しました: %w", err)
	}
	return occupations, nil
}

// CreateOccupation は職種を作成する（管理者用）。
// parentIDが空でない場合は小分類として作成される。
func (s *Service) CreateOccupation(ctx context.Context, name string, parentID string) (*model.Occupation, error) {
	occupation := &model.Occupation{
		ID:      uuid.New().String(),
		Name:    name,
		Primary: parentID == "",
	}
	if parentID != "" {
		occupation.ParentID = &parentID
	}

	if err := s.careerRepo.CreateOccupation(ctx, occupation); err != nil {
		return nil, fmt.Errorf("職種の作成に失敗しました: %w", err)
	}

	return occupation, nil
}

// DeleteOccupation は職種を削除する（管理者用）。小分類はCASCADE削除される。
func (s *Service) DeleteOccupation(ctx context.Context, id string) error {
	if err := s.careerRepo.DeleteOccupation(ctx, id); err != nil {
		return fmt.Errorf("職種の削除に失敗しました: %w", err)
	}
	return nil
}
