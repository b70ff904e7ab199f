// Package payment は決済ゲートウェイ連携のドメインロジックを提供する。
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
)

// defaultTossConfirmURL はToss Paymentsの決済承認エンドポイント。
const defaultTossConfirmURL = "https://api.tosspayments.com/v1/payments/confirm"

// ConfirmInput はフロントエンドから渡される決済承認コールバックの入力。
type ConfirmInput struct {
	PaymentKey string
	OrderID    string
	Amount     int
	ProductIDs []string
}

// CartMarker は決済完了した商品のカート行を購入済みにするインターフェース。
type CartMarker interface {
	MarkBought(ctx context.Context, userID string, productIDs []string) error
}

// TossClient はToss Paymentsの決済承認APIクライアント。
// ConfirmURLはテスト用に上書きできる。
type TossClient struct {
	SecretKey  string
	ConfirmURL string
	HTTPClient *http.Client
}

// NewTossClient はTossClientを生成する。
func NewTossClient(secretKey string) *TossClient {
	return &TossClient{
		SecretKey:  secretKey,
		ConfirmURL: defaultTossConfirmURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// tossConfirmRequest はToss承認APIへのリクエストボディ。
type tossConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int    `json:"amount"`
}

// tossErrorResponse はToss承認APIのエラーレスポンス。
type tossErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Confirm はToss Paymentsの承認APIを呼び出す。
// 認証はシークレットキーをユーザー名、パスワード空のBasic認証。
func (c *TossClient) Confirm(ctx context.Context, paymentKey, orderID string, amount int) error {
	body, err := json.Marshal(tossConfirmRequest{
		PaymentKey: paymentKey,
		OrderID:    orderID,
		Amount:     amount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal confirm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ConfirmURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.SecretKey+":")))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call confirm endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var tossErr tossErrorResponse
		if err := json.Unmarshal(respBody, &tossErr); err == nil && tossErr.Code != "" {
			return fmt.Errorf("confirm rejected: %s (%s)", tossErr.Code, tossErr.Message)
		}
		return fmt.Errorf("confirm rejected with status %d", resp.StatusCode)
	}

	return nil
}

// Confirmer は決済承認APIの呼び出しインターフェース。
type Confirmer interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int) error
}

// Service は決済のサービス層。
// 承認APIの呼び出し、決済記録の保存、カートの購入済み更新を行う。
type Service struct {
	paymentRepo repository.PaymentRepository
	cart        CartMarker
	confirmer   Confirmer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	paymentRepo repository.PaymentRepository,
	cart CartMarker,
	confirmer Confirmer,
) *Service {
	return &Service{
		paymentRepo: paymentRepo,
		cart:        cart,
		confirmer:   confirmer,
	}
}

// Confirm は決済を承認し、結果を記録する。
// 承認が拒否された場合もfailedステータスで記録した上でPAYMENT_FAILEDエラーを返す。
// 承認成功後、該当商品のカート行を購入済みに更新する。
func (s *Service) Confirm(ctx context.Context, userID string, input ConfirmInput) (*model.Payment, error) {
	record := &model.Payment{
		ID:         uuid.New().String(),
		UserID:     userID,
		OrderID:    input.OrderID,
		PaymentKey: input.PaymentKey,
		Amount:     input.Amount,
	}

	if err := s.confirmer.Confirm(ctx, input.PaymentKey, input.OrderID, input.Amount); err != nil {
		record.Status = model.PaymentStatusFailed
		// 失敗記録の保存失敗はログに残すのみで、元の失敗を優先して返す
		if createErr := s.paymentRepo.Create(ctx, record); createErr != nil {
			slog.Error("failed to record failed payment",
				slog.String("order_id", input.OrderID),
				slog.String("error", createErr.Error()),
			)
		}
		return nil, model.NewPaymentFailedError(err.Error())
	}

	record.Status = model.PaymentStatusConfirmed
	if err := s.paymentRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("決済記録の保存に失敗しました: %w", err)
	}

	// カート更新の失敗は決済成功を覆さない
	if s.cart != nil && len(input.ProductIDs) > 0 {
		if err := s.cart.MarkBought(ctx, userID, input.ProductIDs); err != nil {
			slog.Error("failed to mark cart items bought",
				slog.String("user_id", userID),
				slog.String("order_id", input.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	return record, nil
}

// History はユーザーの決済記録を新しい順で返す。
func (s *Service) History(ctx context.Context, userID string) ([]*model.Payment, error) {
	payments, err := s.paymentRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("決済記録の取得に失敗しました: %w", err)
	}
	return payments, nil
}
