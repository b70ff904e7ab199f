// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
)

// DefaultPageSize は一覧取得のデフォルトページサイズ。
const DefaultPageSize = 10

// UpdateProfileInput はプロフィール更新の入力。
type UpdateProfileInput struct {
	Name         string
	Image        string
	Phone        string
	BirthDate    string
	CareerGoal   string
	ExpectSalary int
}

// Service はユーザー管理のサービス層。
// プロフィール更新、管理者向け一覧、ロール付与、退会処理を提供する。
type Service struct {
	userRepo    repository.UserRepository
	roleRepo    repository.RoleRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	sessionRepo repository.SessionRepository,
) *Service {
	return &Service{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		sessionRepo: sessionRepo,
	}
}

// Get は指定IDのユーザーをプロフィールとロール付きで取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は本人のプロフィールを更新し、更新後のユーザーを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil || user.Profile == nil {
		return nil, model.NewUserNotFoundError()
	}

	profile := user.Profile
	profile.Name = input.Name
	profile.Image = input.Image
	profile.Phone = input.Phone
	profile.BirthDate = input.BirthDate
	profile.CareerGoal = input.CareerGoal
	profile.ExpectSalary = input.ExpectSalary

	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	updated, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("更新後のユーザーの取得に失敗しました: %w", err)
	}
	return updated, nil
}

// UpdateMarketing はマーケティング同意フラグを更新する。
func (s *Service) UpdateMarketing(ctx context.Context, userID string, isMarketing bool) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if err := s.userRepo.UpdateMarketing(ctx, userID, isMarketing); err != nil {
		return fmt.Errorf("マーケティング同意の更新に失敗しました: %w", err)
	}
	return nil
}

// List はユーザー一覧をロール付きでページ指定で返す（管理者用）。
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*model.User, model.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)
	users, total, err := s.userRepo.List(ctx, offset, pageSize)
	if err != nil {
		return nil, model.Page{}, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, model.NewPage(total, page, pageSize), nil
}

// AssignRole はユーザーにロールを付与する（管理者用）。
// 取り消し済みの付与が存在する場合はactiveに戻る。
func (s *Service) AssignRole(ctx context.Context, userID, roleName string) error {
	role, err := s.findUserAndRole(ctx, userID, roleName)
	if err != nil {
		return err
	}
	if err := s.roleRepo.Assign(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("ロールの付与に失敗しました: %w", err)
	}
	slog.Info("ロールを付与しました",
		slog.String("user_id", userID),
		slog.String("role", roleName),
	)
	return nil
}

// RevokeRole はユーザーのロール付与を取り消す（管理者用）。
// 付与行は監査用にrevoked状態で残す。
func (s *Service) RevokeRole(ctx context.Context, userID, roleName string) error {
	role, err := s.findUserAndRole(ctx, userID, roleName)
	if err != nil {
		return err
	}
	if err := s.roleRepo.Revoke(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("ロールの取り消しに失敗しました: %w", err)
	}
	slog.Info("ロールを取り消しました",
		slog.String("user_id", userID),
		slog.String("role", roleName),
	)
	return nil
}

func (s *Service) findUserAndRole(ctx context.Context, userID, roleName string) (*model.Role, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	role, err := s.roleRepo.FindByName(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("ロールの取得に失敗しました: %w", err)
	}
	if role == nil {
		return nil, model.NewRoleNotFoundError(roleName)
	}
	return role, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 全デバイスのセッションを無効化した上でユーザー行を削除する。
// profiles、user_roles、user_oauth_sessions等はCASCADEで消える。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	if err := s.sessionRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの無効化に失敗しました: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
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
