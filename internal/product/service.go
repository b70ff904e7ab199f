// Package product は商品とカートのドメインロジックを提供する。
package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
	"github.com/hitoshi/careerhub/internal/security"
)

// DefaultPageSize は一覧取得のデフォルトページサイズ。
const DefaultPageSize = 10

// cartExpiry はカート投入から購入期限までの期間。
const cartExpiry = 3 * 28 * 24 * time.Hour

// CreateInput は商品作成の入力。
type CreateInput struct {
	Title       string
	Content     string
	Thumbnail   string
	DetailImage string
	Price       int
	Discount    int
}

// UpdateInput は商品更新の入力。
type UpdateInput struct {
	Title       string
	Content     string
	Thumbnail   string
	DetailImage string
	Price       int
	Discount    int
}

// Service は商品のサービス層。
// 一覧・検索・CRUD・保存・カートのビジネスロジックを提供する。
type Service struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		productRepo: productRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// List は商品一覧をページングして返す。
func (s *Service) List(ctx context.Context, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	products, total, err := s.productRepo.List(ctx, "", offset, pageSize, viewerID)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}

	return products, model.NewPage(total, page, pageSize), nil
}

// Search はタイトルのキーワード検索結果をページングして返す。
func (s *Service) Search(ctx context.Context, keyword string, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, model.Page{}, model.NewKeywordRequiredError()
	}

	page, pageSize, offset := normalizePage(page, pageSize)

	products, total, err := s.productRepo.List(ctx, keyword, offset, pageSize, viewerID)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("商品の検索に失敗しました: %w", err)
	}

	return products, model.NewPage(total, page, pageSize), nil
}

// Get は商品を1件取得し、閲覧数を1増やす。
// 閲覧数の更新失敗は取得結果に影響しない。
func (s *Service) Get(ctx context.Context, id, viewerID string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id, viewerID)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}

	if err := s.productRepo.IncrementViewCount(ctx, id); err != nil {
		slog.Warn("failed to increment product view count",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	} else {
		product.ViewCount++
	}

	return product, nil
}

// ListMine は指定ユーザーが作成した商品一覧をページングして返す。
func (s *Service) ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	products, total, err := s.productRepo.ListByAuthor(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("自分の商品一覧の取得に失敗しました: %w", err)
	}

	return products, model.NewPage(total, page, pageSize), nil
}

// Create は商品を作成する。説明文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Product, error) {
	product := &model.Product{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       input.Title,
		Content:     s.sanitizer.Sanitize(input.Content),
		Thumbnail:   input.Thumbnail,
		DetailImage: input.DetailImage,
		Price:       input.Price,
		Discount:    input.Discount,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}

	created, err := s.productRepo.FindByID(ctx, product.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("作成した商品の取得に失敗しました: %w", err)
	}

	return created, nil
}

// Update は商品を更新する。作成者本人または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, actorID, productID string, input UpdateInput) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID, actorID)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	if err := s.authorizeOwnerOrAdmin(ctx, actorID, product.UserID); err != nil {
		return nil, err
	}

	product.Title = input.Title
	product.Content = s.sanitizer.Sanitize(input.Content)
	product.Thumbnail = input.Thumbnail
	product.DetailImage = input.DetailImage
	product.Price = input.Price
	product.Discount = input.Discount

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}

	updated, err := s.productRepo.FindByID(ctx, productID, actorID)
	if err != nil {
		return nil, fmt.Errorf("更新した商品の取得に失敗しました: %w", err)
	}

	return updated, nil
}

// Delete は商品を削除する。作成者本人または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, actorID, productID string) error {
	product, err := s.productRepo.FindByID(ctx, productID, actorID)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return model.NewProductNotFoundError(productID)
	}

	if err := s.authorizeOwnerOrAdmin(ctx, actorID, product.UserID); err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}

	return nil
}

// Save は商品をユーザーの保存リストに追加する。
// 既に保存済みの場合はALREADY_SAVEDエラーを返す。
func (s *Service) Save(ctx context.Context, userID, productID string) error {
	product, err := s.productRepo.FindByID(ctx, productID, userID)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return model.NewProductNotFoundError(productID)
	}

	if err := s.productRepo.Save(ctx, userID, productID); err != nil {
		if repository.IsUniqueViolation(err) {
			return model.NewAlreadySavedError()
		}
		return fmt.Errorf("商品の保存に失敗しました: %w", err)
	}

	return nil
}

// Unsave は商品をユーザーの保存リストから削除する。保存していない場合も成功とする。
func (s *Service) Unsave(ctx context.Context, userID, productID string) error {
	if err := s.productRepo.Unsave(ctx, userID, productID); err != nil {
		return fmt.Errorf("商品の保存解除に失敗しました: %w", err)
	}
	return nil
}

// ListSaved はユーザーが保存した商品一覧をページングして返す。
func (s *Service) ListSaved(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	products, total, err := s.productRepo.ListSavedByUser(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("保存した商品一覧の取得に失敗しました: %w", err)
	}

	return products, model.NewPage(total, page, pageSize), nil
}

// AddToCart は商品をカートに追加する。購入期限は投入時点から3×28日。
// 既にカートに入っている場合はALREADY_SAVEDエラーを返す。
func (s *Service) AddToCart(ctx context.Context, userID, productID string) error {
	product, err := s.productRepo.FindByID(ctx, productID, userID)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return model.NewProductNotFoundError(productID)
	}

	expiresAt := time.Now().Add(cartExpiry)
	item := &model.CartItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		ExpiresAt: &expiresAt,
	}

	if err := s.productRepo.AddToCart(ctx, item); err != nil {
		if repository.IsUniqueViolation(err) {
			return model.NewAlreadySavedError()
		}
		return fmt.Errorf("カートへの追加に失敗しました: %w", err)
	}

	return nil
}

// RemoveFromCart はカートから商品を削除する。入っていない場合も成功とする。
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	if err := s.productRepo.RemoveFromCart(ctx, userID, productID); err != nil {
		return fmt.Errorf("カートからの削除に失敗しました: %w", err)
	}
	return nil
}

// ListCart はユーザーのカート内容を未購入と購入済みに分けて返す。
func (s *Service) ListCart(ctx context.Context, userID string) (pending, bought []*model.CartItem, err error) {
	items, err := s.productRepo.ListCart(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}

	for _, item := range items {
		if item.IsBought {
			bought = append(bought, item)
		} else {
			pending = append(pending, item)
		}
	}

	return pending, bought, nil
}

// MarkBought は決済完了した商品のカート行を購入済みにする。
func (s *Service) MarkBought(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	if err := s.productRepo.MarkBought(ctx, userID, productIDs); err != nil {
		return fmt.Errorf("カートの購入済み更新に失敗しました: %w", err)
	}
	return nil
}

// authorizeOwnerOrAdmin は操作者が所有者本人またはアクティブなadminロール保持者で
// あることを検証する。どちらでもない場合はNOT_OWNERエラーを返す。
func (s *Service) authorizeOwnerOrAdmin(ctx context.Context, actorID, ownerID string) error {
	if actorID == ownerID {
		return nil
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("操作ユーザーの取得に失敗しました: %w", err)
	}
	if actor == nil || !actor.IsAdmin() {
		return model.NewNotOwnerError()
	}

	return nil
}
