// Package article は記事コンテンツのドメインロジックを提供する。
package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
	"github.com/hitoshi/careerhub/internal/security"
)

// DefaultPageSize は一覧取得のデフォルトページサイズ。
const DefaultPageSize = 10

// CreateInput は記事作成の入力。
type CreateInput struct {
	Title     string
	Content   string
	Thumbnail string
}

// UpdateInput は記事更新の入力。
type UpdateInput struct {
	Title     string
	Content   string
	Thumbnail string
}

// Service は記事のサービス層。
// 一覧・検索・CRUD・保存（ブックマーク）のビジネスロジックを提供する。
type Service struct {
	articleRepo repository.ArticleRepository
	userRepo    repository.UserRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		articleRepo: articleRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// normalizePage はページ番号とページサイズを正規化してオフセットを返す。
func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// List は記事一覧をページングして返す。
// viewerIDが空でない場合、各記事のSavedフラグを閲覧者視点で埋める。
func (s *Service) List(ctx context.Context, page, pageSize int, viewerID string) ([]*model.Article, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	articles, total, err := s.articleRepo.List(ctx, "", offset, pageSize, viewerID)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}

	return articles, model.NewPage(total, page, pageSize), nil
}

// Search はタイトルのキーワード検索結果をページングして返す。
// キーワードが空白のみの場合はKEYWORD_REQUIREDエラーを返す。
func (s *Service) Search(ctx context.Context, keyword string, page, pageSize int, viewerID string) ([]*model.Article, model.Page, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, model.Page{}, model.NewKeywordRequiredError()
	}

	page, pageSize, offset := normalizePage(page, pageSize)

	articles, total, err := s.articleRepo.List(ctx, keyword, offset, pageSize, viewerID)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("記事の検索に失敗しました: %w", err)
	}

	return articles, model.NewPage(total, page, pageSize), nil
}

// Get は記事を1件取得し、閲覧数を1増やす。
// 閲覧数の更新失敗は取得結果に影響しない。
func (s *Service) Get(ctx context.Context, id, viewerID string) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, id, viewerID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(id)
	}

	if err := s.articleRepo.IncrementViewCount(ctx, id); err != nil {
		slog.Warn("failed to increment article view count",
			slog.String("article_id", id),
			slog.String("error", err.Error()),
		)
	} else {
		article.ViewCount++
	}

	return article, nil
}

// ListMine は指定ユーザーが作成した記事一覧をページングして返す。
func (s *Service) ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Article, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	articles, total, err := s.articleRepo.ListByAuthor(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("自分の記事一覧の取得に失敗しました: %w", err)
	}

	return articles, model.NewPage(total, page, pageSize), nil
}

// Create は記事を作成する。本文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Article, error) {
	article := &model.Article{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     input.Title,
		Content:   s.sanitizer.Sanitize(input.Content),
		Thumbnail: input.Thumbnail,
	}

	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	created, err := s.articleRepo.FindByID(ctx, article.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("作成した記事の取得に失敗しました: %w", err)
	}

	return created, nil
}

// Update は記事を更新する。作成者本人または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, actorID, articleID string, input UpdateInput) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID, actorID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	if err := s.authorizeOwnerOrAdmin(ctx, actorID, article.UserID); err != nil {
		return nil, err
	}

	article.Title = input.Title
	article.Content = s.sanitizer.Sanitize(input.Content)
	article.Thumbnail = input.Thumbnail

	if err := s.articleRepo.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("記事の更新に失敗しました: %w", err)
	}

	updated, err := s.articleRepo.FindByID(ctx, articleID, actorID)
	if err != nil {
		return nil, fmt.Errorf("更新した記事の取得に失敗しました: %w", err)
	}

	return updated, nil
}

// Delete は記事を削除する。作成者本人または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, actorID, articleID string) error {
	article, err := s.articleRepo.FindByID(ctx, articleID, actorID)
	if err != nil {
		return fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return model.NewArticleNotFoundError(articleID)
	}

	if err := s.authorizeOwnerOrAdmin(ctx, actorID, article.UserID); err != nil {
		return err
	}

	if err := s.articleRepo.Delete(ctx, articleID); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}

	return nil
}

// Save は記事をユーザーの保存リストに追加する。
// 既に保存済みの場合はALREADY_SAVEDエラーを返す。
func (s *Service) Save(ctx context.Context, userID, articleID string) error {
	article, err := s.articleRepo.FindByID(ctx, articleID, userID)
	if err != nil {
		return fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return model.NewArticleNotFoundError(articleID)
	}

	if err := s.articleRepo.Save(ctx, userID, articleID); err != nil {
		if repository.IsUniqueViolation(err) {
			return model.NewAlreadySavedError()
		}
		return fmt.Errorf("記事の保存に失敗しました: %w", err)
	}

	return nil
}

// Unsave は記事をユーザーの保存リストから削除する。保存していない場合も成功とする。
func (s *Service) Unsave(ctx context.Context, userID, articleID string) error {
	if err := s.articleRepo.Unsave(ctx, userID, articleID); err != nil {
		return fmt.Errorf("記事の保存解除に失敗しました: %w", err)
	}
	return nil
}

// ListSaved はユーザーが保存した記事一覧を保存の新しい順でページングして返す。
func (s *Service) ListSaved(ctx context.Context, userID string, page, pageSize int) ([]*model.Article, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	articles, total, err := s.articleRepo.ListSavedByUser(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("保存した記事一覧の取得に失敗しました: %w", err)
	}

	return articles, model.NewPage(total, page, pageSize), nil
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
