// Package model はドメインモデルを定義する。
package model

import "time"

// セッション管理上、credentialログインもプロバイダーの一種として扱う。
const (
	ProviderCredential = "credential"
	ProviderKakao      = "kakao"
)

// RoleAdmin は管理者権限を表すロール名。
const RoleAdmin = "admin"

// UserRoleStatusActive / UserRoleStatusRevoked はロール付与の状態を表す。
const (
	UserRoleStatusActive  = "active"
	UserRoleStatusRevoked = "revoked"
)

// User はサービス利用ユーザーを表す。
// PasswordHashはOAuth専用ユーザーの場合空になる。
// 通常のクエリではPasswordHashを取得せず、認証時のみ明示的に取得する。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsMarketing  bool
	LastActiveAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// 取得時にJOINで埋められる関連。nilの場合は未ロード。
	Profile *Profile
	Roles   []UserRole
}

// Profile はユーザーのプロフィール情報を表す。Userと1対1。
type Profile struct {
	ID           string
	UserID       string
	Name         string
	Image        string
	Phone        string
	BirthDate    string
	CareerGoal   string
	ExpectSalary int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role は権限ティアを表す（"admin", "user"等）。
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRole はユーザーとロールの多対多のリンク行を表す。
// statusがactiveの行のみが有効な権限として扱われる。
type UserRole struct {
	ID         string
	UserID     string
	RoleID     string
	RoleName   string
	Status     string
	AssignedAt time.Time
	RevokedAt  *time.Time
}

// OAuthProvider は対応プロバイダーのカタログ行を表す。
type OAuthProvider struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Session はユーザーとデバイスを紐付けるリフレッシュトークンセッションを表す。
// (UserID, DeviceID)にユニーク制約があり、同一デバイスからの再ログインは
// 既存行のトークン素材を上書きする。
// RefreshTokenHashは平文トークンの一方向ハッシュのみを保持する。
// ログアウト時はRefreshTokenHash/RefreshTokenExpをnullにして行自体は残す（監査用）。
type Session struct {
	ID               string
	UserID           string
	ProviderID       string
	ProviderName     string
	DeviceID         string
	ProviderUserID   *string
	RefreshTokenHash *string
	RefreshTokenExp  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsRevoked はセッションのトークン素材が無効化済みかどうかを返す。
func (s *Session) IsRevoked() bool {
	return s.RefreshTokenHash == nil
}

// IsAdmin はアクティブなadminロールを1つ以上持つ場合にtrueを返す。
// 取り消し済み（status=revoked）のロールは権限として数えない。
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r.RoleName == RoleAdmin && r.Status == UserRoleStatusActive {
			return true
		}
	}
	return false
}
