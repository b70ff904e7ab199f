package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair はログイン時に発行されるトークンの組。
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RegisterInput は会員登録の入力。
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	Phone       string
	BirthDate   string
	Role        string // 空の場合はuser
	IsMarketing bool
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	sessions *SessionService
	tokens   *TokenIssuer
	kakao    OAuthProvider
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	sessions *SessionService,
	tokens *TokenIssuer,
	kakao OAuthProvider,
) *Service {
	return &Service{
		userRepo: userRepo,
		roleRepo: roleRepo,
		sessions: sessions,
		tokens:   tokens,
		kakao:    kakao,
	}
}

// Register は新規ユーザーを登録し、指定されたロールを付与する。
// ロール未指定の場合はuserを付与する。
// email重複の場合はUSER_ALREADY_EXISTSエラーを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserAlreadyExistsError(input.Email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(passwordHash),
		IsMarketing:  input.IsMarketing,
	}
	profile := &model.Profile{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      input.Name,
		Phone:     input.Phone,
		BirthDate: input.BirthDate,
	}

	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		// 同時登録のレースはユニーク制約で検出する
		if repository.IsUniqueViolation(err) {
			return nil, model.NewUserAlreadyExistsError(input.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.assignRole(ctx, user.ID, input.Role); err != nil {
		return nil, err
	}

	created, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", input.Email),
	)

	return created, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// ユーザー不在とパスワード不一致は同じINVALID_CREDENTIALSエラーになる。
func (s *Service) Login(ctx context.Context, email, password, deviceID string, isMobile bool) (*TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByEmailWithPassword(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	// OAuth専用ユーザー（パスワード未設定）もcredentialログインは不可
	if user == nil || user.PasswordHash == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	pair, err := s.issueTokens(ctx, user, model.ProviderCredential, deviceID, nil, isMobile)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("login completed",
		slog.String("user_id", user.ID),
		slog.String("device_id", deviceID),
		slog.String("provider", model.ProviderCredential),
	)

	return pair, user, nil
}

// GetKakaoLoginURL はKakao OAuthの認証URLを生成する。
func (s *Service) GetKakaoLoginURL(state string) string {
	return s.kakao.GetLoginURL(state)
}

// KakaoLogin はKakao OAuthコールバックを処理し、トークンを発行する。
// 既存ユーザーは(プロバイダー名, プロバイダー側ユーザーID)で解決する。
// Kakao側でメールアドレスが変わっても同じローカルユーザーに紐付く。
// 紐付くユーザーがいない場合はパスワードなしのユーザーを自動作成する。
func (s *Service) KakaoLogin(ctx context.Context, code, deviceID string, isMobile bool) (*TokenPair, *model.User, error) {
	userInfo, err := s.kakao.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.userRepo.FindByProviderUser(ctx, model.ProviderKakao, userInfo.ProviderUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		user, err = s.registerOAuthUser(ctx, userInfo)
		if err != nil {
			return nil, nil, err
		}
	}

	pair, err := s.issueTokens(ctx, user, model.ProviderKakao, deviceID, &userInfo.ProviderUserID, isMobile)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("login completed",
		slog.String("user_id", user.ID),
		slog.String("device_id", deviceID),
		slog.String("provider", model.ProviderKakao),
	)

	return pair, user, nil
}

// Refresh は有効なリフレッシュトークンと引き換えに新しいアクセストークンを発行する。
// リフレッシュトークン自体は再発行しない。
func (s *Service) Refresh(ctx context.Context, refreshToken, deviceID string) (string, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", model.NewInvalidRefreshTokenError()
	}

	// セッション不在・ログアウト済み・ハッシュ不一致はすべてINVALID_USERに畳む。
	// INVALID_REFRESH_TOKENは署名/期限の検証失敗のみ。
	session, err := s.sessions.Validate(ctx, claims.ID, deviceID, refreshToken)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", model.NewInvalidUserError()
	}

	user, err := s.userRepo.FindByID(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewInvalidUserError()
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// Logout は指定デバイスのセッションを破棄する。冪等。
func (s *Service) Logout(ctx context.Context, userID, deviceID string) error {
	if err := s.sessions.Revoke(ctx, userID, deviceID); err != nil {
		return err
	}

	slog.Info("logout completed",
		slog.String("user_id", userID),
		slog.String("device_id", deviceID),
	)
	return nil
}

// issueTokens はアクセス/リフレッシュトークンを発行してセッションを更新する。
func (s *Service) issueTokens(ctx context.Context, user *model.User, providerName, deviceID string, providerUserID *string, isMobile bool) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := s.tokens.IssueRefreshToken(user.ID, isMobile)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Upsert(ctx, user.ID, providerName, deviceID, providerUserID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	// 最終アクティブ更新はベストエフォート。失敗してもログインは成立させる。
	if err := s.userRepo.UpdateLastActive(ctx, user.ID); err != nil {
		slog.Warn("failed to update last active",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// registerOAuthUser はOAuthユーザー情報からパスワードなしのユーザーを作成する。
func (s *Service) registerOAuthUser(ctx context.Context, userInfo *OAuthUserInfo) (*model.User, error) {
	user := &model.User{
		ID:          uuid.New().String(),
		Email:       userInfo.Email,
		IsMarketing: userInfo.IsMarketing,
	}
	profile := &model.Profile{
		ID:     uuid.New().String(),
		UserID: user.ID,
		Name:   userInfo.Name,
		Image:  userInfo.ProfileImage,
	}

	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		if repository.IsUniqueViolation(err) {
			// レース時は作成済みの行を使う
			existing, findErr := s.userRepo.FindByEmail(ctx, userInfo.Email)
			if findErr != nil {
				return nil, fmt.Errorf("failed to find user after race: %w", findErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	if err := s.assignRole(ctx, user.ID, "user"); err != nil {
		return nil, err
	}

	created, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("email", userInfo.Email),
		slog.String("provider", userInfo.Provider),
	)

	return created, nil
}

// assignRole は新規ユーザーに指定ロールを付与する。空の場合はuserを付与する。
func (s *Service) assignRole(ctx context.Context, userID, roleName string) error {
	if roleName == "" {
		roleName = "user"
	}

	role, err := s.roleRepo.FindByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("failed to find role: %w", err)
	}
	if role == nil {
		return model.NewRoleNotFoundError(roleName)
	}

	if err := s.roleRepo.Assign(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	return nil
}
