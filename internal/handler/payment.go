package handler

import (
	"net/http"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"

	"go.uber.org/zap"
)

// PaymentHandler exposes payment status polling.
type PaymentHandler struct {
	transactions repository.TransactionRepository
	logger       *zap.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(transactions repository.TransactionRepository, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{transactions: transactions, logger: logger}
}

// Status handles GET /api/payments/{id}/status
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	tx, err := h.transactions.GetByID(r.Context(), id)
	if err != nil {
		repoError(w, r, h.logger, "transaction not found", err)
		return
	}
	if tx.BuyerID != user.ID && tx.SellerID != user.ID {
		response.Error(w, apierror.Forbidden("you are not part of this transaction"))
		return
	}

	response.OK(w, model.PaymentStatus{
		TransactionID: tx.ID,
		Status:        tx.Status,
		UpdatedAt:     tx.UpdatedAt,
	})
}
