// Package advertisement は広告枠のドメインロジックを提供する。
package advertisement

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
	"github.com/hitoshi/careerhub/internal/security"
)

// AdInput は広告の作成・更新の入力。
type AdInput struct {
	AdNumber    int
	ImagePC     string
	ImageMobile string
	Link        string
	Memo        string
}

// Service は広告のサービス層。
// 公開側のスロット別一覧と、管理者用CRUDを提供する。
// 遷移先URLは保存前にSSRFガードで検証し、到達性を確認する。
type Service struct {
	adRepo repository.AdvertisementRepository
	guard  security.SSRFGuardService

	// checkClient は到達性確認に使うHTTPクライアント。
	// 本番ではguard.NewSafeClientで生成されたSSRF防止付きクライアントを渡す。
	// nilの場合、到達性確認はスキップされる（静的検証のみ）。
	checkClient *http.Client
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	adRepo repository.AdvertisementRepository,
	guard security.SSRFGuardService,
	checkClient *http.Client,
) *Service {
	return &Service{
		adRepo:      adRepo,
		guard:       guard,
		checkClient: checkClient,
	}
}

// ListBySlot は指定スロット番号に掲載中の広告一覧を返す。
func (s *Service) ListBySlot(ctx context.Context, adNumber int) ([]*model.Advertisement, error) {
	ads, err := s.adRepo.ListByAdNumber(ctx, adNumber)
	if err != nil {
		return nil, fmt.Errorf("広告一覧の取得に失敗しました: %w", err)
	}
	return ads, nil
}

// ListAll は全広告をスロット番号順で返す（管理者用）。
func (s *Service) ListAll(ctx context.Context) ([]*model.Advertisement, error) {
	ads, err := s.adRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("広告一覧の取得に失敗しました: %w", err)
	}
	return ads, nil
}

// Get は広告を1件取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Advertisement, error) {
	ad, err := s.adRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("広告の取得に失敗しました: %w", err)
	}
	if ad == nil {
		return nil, model.NewAdNotFoundError(id)
	}
	return ad, nil
}

// Create は広告を作成する（管理者用）。
// 遷移先URLの検証に失敗した場合はINVALID_URLエラーを返す。
func (s *Service) Create(ctx context.Context, input AdInput) (*model.Advertisement, error) {
	if err := s.checkLink(ctx, input.Link); err != nil {
		return nil, err
	}

	ad := &model.Advertisement{
		ID:          uuid.New().String(),
		AdNumber:    input.AdNumber,
		ImagePC:     input.ImagePC,
		ImageMobile: input.ImageMobile,
		Link:        input.Link,
		Memo:        input.Memo,
	}

	if err := s.adRepo.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("広告の作成に失敗しました: %w", err)
	}

	return ad, nil
}

// Update は広告を更新する（管理者用）。
func (s *Service) Update(ctx context.Context, id string, input AdInput) (*model.Advertisement, error) {
	ad, err := s.adRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("広告の取得に失敗しました: %w", err)
	}
	if ad == nil {
		return nil, model.NewAdNotFoundError(id)
	}

	// リンクが変わる場合のみ再検証する
	if input.Link != ad.Link {
		if err := s.checkLink(ctx, input.Link); err != nil {
			return nil, err
		}
	}

	ad.AdNumber = input.AdNumber
	ad.ImagePC = input.ImagePC
	ad.ImageMobile = input.ImageMobile
	ad.Link = input.Link
	ad.Memo = input.Memo

	if err := s.adRepo.Update(ctx, ad); err != nil {
		return nil, fmt.Errorf("広告の更新に失敗しました: %w", err)
	}

	return ad, nil
}

// Delete は広告を削除する（管理者用）。
func (s *Service) Delete(ctx context.Context, id string) error {
	ad, err := s.adRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("広告の取得に失敗しました: %w", err)
	}
	if ad == nil {
		return model.NewAdNotFoundError(id)
	}

	if err := s.adRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("広告の削除に失敗しました: %w", err)
	}

	return nil
}

// checkLink は遷移先URLの静的検証と到達性確認を行う。
func (s *Service) checkLink(ctx context.Context, link string) error {
	if err := s.guard.ValidateURL(link); err != nil {
		return model.NewInvalidURLError(err.Error())
	}

	if s.checkClient == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}

	resp, err := s.checkClient.Do(req)
	if err != nil {
		return model.NewInvalidURLError(fmt.Sprintf("リンク先に到達できません: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return model.NewInvalidURLError(fmt.Sprintf("リンク先がエラーを返しました: %d", resp.StatusCode))
	}

	return nil
}
