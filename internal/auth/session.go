package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost はリフレッシュトークンとパスワードのハッシュコスト。
const bcryptCost = 10

// SessionService はデバイス単位のリフレッシュトークンセッションを管理する。
// トークンの平文はどこにも保存せず、bcryptハッシュのみをDBに置く。
type SessionService struct {
	sessionRepo  repository.SessionRepository
	providerRepo repository.ProviderRepository
}

// NewSessionService はSessionServiceを生成する。
func NewSessionService(sessionRepo repository.SessionRepository, providerRepo repository.ProviderRepository) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		providerRepo: providerRepo,
	}
}

// digestToken はリフレッシュトークンをbcryptに渡す前にSHA-256で圧縮する。
// bcryptは先頭72バイトしか見ないため、ヘッダー部が共通するJWT同士が
// 同一ハッシュに照合されるのを防ぐ。
func digestToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte(hex.EncodeToString(sum[:]))
}

// hashRefreshToken はリフレッシュトークンの保存用ハッシュを生成する。
func hashRefreshToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digestToken(token), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash refresh token: %w", err)
	}
	return string(hash), nil
}

// compareRefreshToken は保存されたハッシュと提示されたトークンを照合する。
func compareRefreshToken(storedHash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), digestToken(token)) == nil
}

// Upsert はログイン時にセッションを作成または上書きする。
// 同一の(ユーザー, デバイス)で再ログインした場合、既存行のトークン素材が
// 置き換わるため、以前発行したリフレッシュトークンは即座に使えなくなる。
func (s *SessionService) Upsert(ctx context.Context, userID, providerName, deviceID string, providerUserID *string, refreshToken string, expiresAt time.Time) error {
	provider, err := s.providerRepo.FindByName(ctx, providerName)
	if err != nil {
		return fmt.Errorf("failed to find provider: %w", err)
	}
	if provider == nil {
		return model.NewProviderNotFoundError(providerName)
	}

	hash, err := hashRefreshToken(refreshToken)
	if err != nil {
		return err
	}

	session := &model.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		ProviderID:       provider.ID,
		DeviceID:         deviceID,
		ProviderUserID:   providerUserID,
		RefreshTokenHash: &hash,
		RefreshTokenExp:  &expiresAt,
	}

	if err := s.sessionRepo.Upsert(ctx, session); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// Validate は提示されたリフレッシュトークンをセッションと照合する。
// セッションが存在しない、ログアウト済み、DB上の期限が過ぎている、
// またはハッシュが一致しない場合は(nil, nil)を返す。
// DB上の期限はトークン自体のexpクレームとは独立に検査される。
func (s *SessionService) Validate(ctx context.Context, userID, deviceID, refreshToken string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByUserAndDevice(ctx, userID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.IsRevoked() {
		return nil, nil
	}

	if session.RefreshTokenExp == nil || session.RefreshTokenExp.Before(time.Now()) {
		return nil, nil
	}

	if !compareRefreshToken(*session.RefreshTokenHash, refreshToken) {
		return nil, nil
	}

	return session, nil
}

// Revoke はセッションのトークン素材を破棄する。行自体は残す。
// 対象セッションが存在しない場合もエラーにしない（ログアウトは冪等）。
func (s *SessionService) Revoke(ctx context.Context, userID, deviceID string) error {
	if err := s.sessionRepo.Revoke(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAll は指定ユーザーの全デバイスのセッションを破棄する。
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.sessionRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke all sessions: %w", err)
	}
	return nil
}
