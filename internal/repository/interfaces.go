// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/careerhub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーをプロフィールとロール付きで取得する。
	// 見つからない場合はnilを返す。PasswordHashは含まれない。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// PasswordHashは含まれない。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByEmailWithPassword は認証用にPasswordHashを含めてユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error)

	// FindByProviderUser は(プロバイダー名, プロバイダー側ユーザーID)で
	// ユーザーを検索する。user_oauth_sessionsとoauth_providersの結合で解決する。
	// 紐付くセッションがない場合はnilを返す。
	FindByProviderUser(ctx context.Context, providerName, providerUserID string) (*model.User, error)

	// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
	// email重複の場合はユニーク制約違反のエラーを返す（IsUniqueViolationで判定可能）。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error

	// UpdateProfile はプロフィール情報を更新する。
	UpdateProfile(ctx context.Context, profile *model.Profile) error

	// UpdateMarketing はマーケティング同意フラグを更新する。
	UpdateMarketing(ctx context.Context, userID string, isMarketing bool) error

	// UpdateLastActive は最終アクティブ日時を現在時刻に更新する。
	UpdateLastActive(ctx context.Context, userID string) error

	// List はユーザー一覧をページ指定で返す（管理者用）。総件数も返す。
	List(ctx context.Context, offset, limit int) ([]*model.User, int, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するprofiles、user_roles、user_oauth_sessions等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// RoleRepository はロールとユーザーへの付与の永続化インターフェース。
type RoleRepository interface {
	// FindByName はロール名でロールを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Role, error)

	// Assign はユーザーにロールを付与する。
	// 取り消し済みの付与が存在する場合はactiveに戻す。
	Assign(ctx context.Context, userID, roleID string) error

	// Revoke はユーザーのロール付与をrevokedに変更する。行自体は残す。
	Revoke(ctx context.Context, userID, roleID string) error

	// ListByUserID はユーザーへの全ロール付与をロール名付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]model.UserRole, error)
}

// ProviderRepository は対応プロバイダーのカタログ参照インターフェース。
type ProviderRepository interface {
	// FindByName はプロバイダー名でカタログ行を検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.OAuthProvider, error)
}

// SessionRepository はリフレッシュトークンセッションの永続化インターフェース。
type SessionRepository interface {
	// Upsert は(user_id, device_id)でセッションを作成または上書きする。
	// 既存行がある場合はprovider_id、provider_user_id、refresh_token_hash、
	// refresh_token_expを新しい値で置き換える。
	Upsert(ctx context.Context, session *model.Session) error

	// FindByUserAndDevice は(user_id, device_id)でセッションを取得する。
	// 見つからない場合はnilを返す。ログアウト済みの行（トークン素材がNULL）も返す。
	FindByUserAndDevice(ctx context.Context, userID, deviceID string) (*model.Session, error)

	// Revoke はセッションのrefresh_token_hash/refresh_token_expをNULLにする。
	// 行自体は残す。対象行が存在しなくてもエラーにしない。
	Revoke(ctx context.Context, userID, deviceID string) error

	// RevokeAllByUserID は指定ユーザーの全セッションを無効化する。
	RevokeAllByUserID(ctx context.Context, userID string) error

	// RevokeExpired は期限切れのセッションのトークン素材をNULLにし、件数を返す。
	RevokeExpired(ctx context.Context, before time.Time) (int64, error)
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindByID は指定IDの記事を作成者名付きで取得する。見つからない場合はnilを返す。
	// viewerIDが空でない場合、Savedフラグを閲覧者視点で埋める。
	FindByID(ctx context.Context, id, viewerID string) (*model.Article, error)

	// List は記事一覧を新しい順で返す。keywordが空でない場合タイトルで部分一致検索する。
	// 総件数も返す。
	List(ctx context.Context, keyword string, offset, limit int, viewerID string) ([]*model.Article, int, error)

	// ListByAuthor は指定ユーザーが作成した記事一覧を新しい順で返す。
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Article, int, error)

	// Create は記事を作成する。
	Create(ctx context.Context, article *model.Article) error

	// Update は記事のタイトル・本文・サムネイルを更新する。
	Update(ctx context.Context, article *model.Article) error

	// Delete は指定IDの記事を削除する。
	Delete(ctx context.Context, id string) error

	// IncrementViewCount は閲覧数を1増やす。
	IncrementViewCount(ctx context.Context, id string) error

	// Save は記事をユーザーの保存リストに追加する。
	// 既に保存済みの場合はユニーク制約違反のエラーを返す。
	Save(ctx context.Context, userID, articleID string) error

	// Unsave は記事をユーザーの保存リストから削除する。
	Unsave(ctx context.Context, userID, articleID string) error

	// ListSavedByUser はユーザーが保存した記事一覧を保存の新しい順で返す。
	ListSavedByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Article, int, error)
}

// ProductRepository は商品・保存・カートの永続化インターフェース。
type ProductRepository interface {
	// FindByID は指定IDの商品を作成者名付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id, viewerID string) (*model.Product, error)

	// List は商品一覧を新しい順で返す。keywordが空でない場合タイトルで部分一致検索する。
	List(ctx context.Context, keyword string, offset, limit int, viewerID string) ([]*model.Product, int, error)

	// ListByAuthor は指定ユーザーが作成した商品一覧を新しい順で返す。
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Product, int, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Update は商品情報を更新する。
	Update(ctx context.Context, product *model.Product) error

	// Delete は指定IDの商品を削除する。
	Delete(ctx context.Context, id string) error

	// IncrementViewCount は閲覧数を1増やす。
	IncrementViewCount(ctx context.Context, id string) error

	// Save は商品をユーザーの保存リストに追加する。
	Save(ctx context.Context, userID, productID string) error

	// Unsave は商品をユーザーの保存リストから削除する。
	Unsave(ctx context.Context, userID, productID string) error

	// ListSavedByUser はユーザーが保存した商品一覧を返す。
	ListSavedByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Product, int, error)

	// AddToCart は商品をカートに追加する。既に入っている場合はユニーク制約違反を返す。
	AddToCart(ctx context.Context, item *model.CartItem) error

	// RemoveFromCart はカートから商品を削除する。
	RemoveFromCart(ctx context.Context, userID, productID string) error

	// ListCart はユーザーのカート内容を商品情報付きで返す。
	ListCart(ctx context.Context, userID string) ([]*model.CartItem, error)

	// MarkBought は決済完了した商品のカート行を購入済みにする。
	MarkBought(ctx context.Context, userID string, productIDs []string) error
}

// CareerRepository は職歴と職級/職種カタログの永続化インターフェース。
type CareerRepository interface {
	// ListByUserID はユーザーの職歴一覧を開始日の新しい順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Career, error)

	// FindByID は指定IDの職歴を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Career, error)

	// Create は職歴を作成する。
	Create(ctx context.Context, career *model.Career) error

	// Update は職歴を更新する。
	Update(ctx context.Context, career *model.Career) error

	// Delete は指定IDの職歴を削除する。
	Delete(ctx context.Context, id string) error

	// ListJobRanks は職級カタログをsort_order順で返す。
	ListJobRanks(ctx context.Context) ([]*model.JobRank, error)

	// CreateJobRank は職級を作成する（管理者用）。
	CreateJobRank(ctx context.Context, rank *model.JobRank) error

	// DeleteJobRank は職級を削除する（管理者用）。
	DeleteJobRank(ctx context.Context, id string) error

	// ListOccupations は職種カタログを返す。
	// primaryOnlyがtrueの場合は大分類のみ、parentIDが指定された場合はその小分類のみ返す。
	ListOccupations(ctx context.Context, primaryOnly bool, parentID string) ([]*model.Occupation, error)

	// CreateOccupation は職種を作成する（管理者用）。
	CreateOccupation(ctx context.Context, occupation *model.Occupation) error

	// DeleteOccupation は職種を削除する（管理者用）。小分類はCASCADE削除される。
	DeleteOccupation(ctx context.Context, id string) error
}

// AdvertisementRepository は広告データの永続化インターフェース。
type AdvertisementRepository interface {
	// FindByID は指定IDの広告を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Advertisement, error)

	// ListByAdNumber は指定スロット番号の広告一覧を返す。
	ListByAdNumber(ctx context.Context, adNumber int) ([]*model.Advertisement, error)

	// ListAll は全広告をスロット番号順で返す（管理者用）。
	ListAll(ctx context.Context) ([]*model.Advertisement, error)

	// Create は広告を作成する。
	Create(ctx context.Context, ad *model.Advertisement) error

	// Update は広告を更新する。
	Update(ctx context.Context, ad *model.Advertisement) error

	// Delete は指定IDの広告を削除する。
	Delete(ctx context.Context, id string) error
}

// PaymentRepository は決済記録の永続化インターフェース。
type PaymentRepository interface {
	// Create は決済記録を作成する。
	Create(ctx context.Context, payment *model.Payment) error

	// ListByUserID はユーザーの決済記録を新しい順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Payment, error)
}
