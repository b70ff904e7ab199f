package model

import "time"

// Article は記事コンテンツを表す。
type Article struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Thumbnail string
	ViewCount int
	CreatedAt time.Time
	UpdatedAt time.Time

	// 作成者の表示名。一覧取得時にJOINで埋められる。
	AuthorName string
	// 閲覧者が保存済みかどうか。認証済みリクエストでのみ意味を持つ。
	Saved bool
}

// Product は商品を表す。
type Product struct {
	ID          string
	UserID      string
	Title       string
	Content     string
	Thumbnail   string
	DetailImage string
	Price       int
	Discount    int
	ViewCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time

	AuthorName string
	Saved      bool
}

// CartItem はカート内の商品1件を表す。(UserID, ProductID)にユニーク制約がある。
type CartItem struct {
	ID        string
	UserID    string
	ProductID string
	IsBought  bool
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product
}

// Career はユーザーの職歴1件を表す。
type Career struct {
	ID            string
	UserID        string
	Company       string
	JobRankID     *string
	OccupationID  *string
	StartedAt     *time.Time
	EndedAt       *time.Time
	IsCurrent     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobRank は職級カタログの1行を表す（管理者が管理）。
type JobRank struct {
	ID        string
	Name      string
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Occupation は職種カタログの1行を表す。
// Primaryがtrueの行は大分類、falseの行はParentIDで大分類に紐付く小分類。
type Occupation struct {
	ID        string
	Name      string
	Primary   bool
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Advertisement は広告枠の掲載1件を表す。
// AdNumberは表示スロット番号で、同一スロットに複数の広告がローテーション掲載される。
type Advertisement struct {
	ID          string
	AdNumber    int
	ImagePC     string
	ImageMobile string
	Link        string
	Memo        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PaymentStatusConfirmed / PaymentStatusFailed は決済レコードの状態を表す。
const (
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

// Payment は決済ゲートウェイ承認コールバックの記録を表す。
type Payment struct {
	ID         string
	UserID     string
	OrderID    string
	PaymentKey string
	Amount     int
	Status     string
	CreatedAt  time.Time
}

// Page はオフセットページネーションの結果メタ情報を表す。
type Page struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

// NewPage は総件数とページサイズからPageを組み立てる。
func NewPage(total, page, pageSize int) Page {
	lastPage := 0
	if pageSize > 0 {
		lastPage = (total + pageSize - 1) / pageSize
	}
	return Page{Total: total, Page: page, LastPage: lastPage}
}
