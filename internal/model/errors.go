package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, commerce, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	ErrCodeProviderNotFound    = "PROVIDER_NOT_FOUND"
	ErrCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	ErrCodeInvalidUser         = "INVALID_USER"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeNotOwner            = "NOT_OWNER"
	ErrCodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeCareerNotFound      = "CAREER_NOT_FOUND"
	ErrCodeAdNotFound          = "AD_NOT_FOUND"
	ErrCodeAlreadySaved        = "ALREADY_SAVED"
	ErrCodeKeywordRequired     = "KEYWORD_REQUIRED"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeUploadRejected      = "UPLOAD_REJECTED"
	ErrCodePaymentFailed       = "PAYMENT_FAILED"
	ErrCodeRoleNotFound        = "ROLE_NOT_FOUND"
)

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレス不一致とパスワード不一致を区別しない（列挙攻撃の抑止）。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserAlreadyExistsError は重複登録エラーを生成する。
func NewUserAlreadyExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewProviderNotFoundError はプロバイダーカタログの設定不備エラーを生成する。
// ユーザー起因ではなく構成エラーとして扱う。
func NewProviderNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderNotFound,
		Message:  fmt.Sprintf("認証プロバイダーが登録されていません: %s", name),
		Category: "system",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークン検証失敗エラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewInvalidUserError はリフレッシュ時に有効なセッションが見つからない場合のエラーを生成する。
func NewInvalidUserError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUser,
		Message:  "有効なセッションが見つかりません。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUnauthorizedError はガードでの認証失敗エラーを生成する。
// どの検証段階で失敗したかは意図的に開示しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotOwnerError は所有者でも管理者でもないユーザーによる変更操作のエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "所有者または管理者のアカウントでログインしてください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "content",
		Action:   "記事IDを確認してください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "commerce",
		Action:   "商品IDを確認してください。",
	}
}

// NewCareerNotFoundError は職歴未検出エラーを生成する。
func NewCareerNotFoundError(careerID string) *APIError {
	return &APIError{
		Code:     ErrCodeCareerNotFound,
		Message:  fmt.Sprintf("指定された職歴が見つかりません: %s", careerID),
		Category: "content",
		Action:   "職歴IDを確認してください。",
	}
}

// NewAdNotFoundError は広告未検出エラーを生成する。
func NewAdNotFoundError(adID string) *APIError {
	return &APIError{
		Code:     ErrCodeAdNotFound,
		Message:  fmt.Sprintf("指定された広告が見つかりません: %s", adID),
		Category: "content",
		Action:   "広告IDを確認してください。",
	}
}

// NewAlreadySavedError は保存済みコンテンツの再保存エラーを生成する。
func NewAlreadySavedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySaved,
		Message:  "既に保存済みです。",
		Category: "content",
		Action:   "保存一覧を確認してください。",
	}
}

// NewKeywordRequiredError は検索キーワード未指定エラーを生成する。
func NewKeywordRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeKeywordRequired,
		Message:  "検索キーワードを指定してください。",
		Category: "validation",
		Action:   "1文字以上のキーワードを入力してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まる到達可能なURLを入力してください。",
	}
}

// NewUploadRejectedError はアップロード拒否エラーを生成する。
func NewUploadRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadRejected,
		Message:  fmt.Sprintf("ファイルを受け付けられません: %s", reason),
		Category: "validation",
		Action:   "対応形式とファイルサイズを確認してください。",
	}
}

// NewRoleNotFoundError はロール未登録エラーを生成する。
func NewRoleNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeRoleNotFound,
		Message:  fmt.Sprintf("ロールが見つかりません: %s", name),
		Category: "resource",
		Action:   "ロール名を確認してください。",
	}
}

// NewPaymentFailedError は決済承認失敗エラーを生成する。
func NewPaymentFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePaymentFailed,
		Message:  fmt.Sprintf("決済に失敗しました: %s", reason),
		Category: "commerce",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
