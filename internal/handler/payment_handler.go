package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/payment"
)

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	Confirm(ctx context.Context, userID string, input payment.ConfirmInput) (*model.Payment, error)
	History(ctx context.Context, userID string) ([]*model.Payment, error)
}

// PaymentMetrics は決済結果を記録する。nilの場合は記録しない。
type PaymentMetrics interface {
	RecordPayment(status string)
}

// PaymentHandler は決済のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
	metrics PaymentMetrics
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface, metrics PaymentMetrics) *PaymentHandler {
	return &PaymentHandler{service: service, metrics: metrics}
}

type confirmPaymentRequest struct {
	PaymentKey string   `json:"payment_key"`
	OrderID    string   `json:"order_id"`
	Amount     int      `json:"amount"`
	ProductIDs []string `json:"product_ids"`
}

type paymentResponse struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	PaymentKey string    `json:"payment_key"`
	Amount     int       `json:"amount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		PaymentKey: p.PaymentKey,
		Amount:     p.Amount,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
	}
}

// Confirm はToss決済を承認し、カート内の対象商品を購入済みにする。
// POST /payments/toss
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.Confirm(r.Context(), userID, payment.ConfirmInput{
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		ProductIDs: req.ProductIDs,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordPayment("failed")
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPayment(p.Status)
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

// History は自分の決済履歴を新しい順で返す。
// GET /payments
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.History(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
