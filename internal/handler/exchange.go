package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace-rest-api/internal/service"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/money"
	"marketplace-rest-api/pkg/response"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource provides currency rates and conversions.
type RateSource interface {
	Rates(ctx context.Context, base string) (*service.ExchangeRates, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// ExchangeHandler serves exchange rates and price conversion.
type ExchangeHandler struct {
	rates  RateSource
	logger *zap.Logger
}

// NewExchangeHandler creates a new exchange handler.
func NewExchangeHandler(rates RateSource, logger *zap.Logger) *ExchangeHandler {
	return &ExchangeHandler{rates: rates, logger: logger}
}

// Rates handles GET /api/exchange-rates?base=
func (h *ExchangeHandler) Rates(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSpace(r.URL.Query().Get("base"))
	if base == "" {
		base = "USD"
	}

	rates, err := h.rates.Rates(r.Context(), base)
	if err != nil {
		h.rateError(w, r, err)
		return
	}
	response.OK(w, rates)
}

// ConversionResponse is the result of a price conversion.
type ConversionResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
	Formatted string          `json:"formatted"`
}

// Convert handles GET /api/prices/convert?amount=&from=&to=
func (h *ExchangeHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := money.ParseAmount(q.Get("amount"))
	if err != nil {
		response.Error(w, apierror.BadRequest("amount must be a number"))
		return
	}
	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))

	converted, err := h.rates.Convert(r.Context(), amount, from, to)
	if err != nil {
		h.rateError(w, r, err)
		return
	}

	response.OK(w, ConversionResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Converted: converted,
		Formatted: money.FormatPrice(converted, to),
	})
}

func (h *ExchangeHandler) rateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCurrency):
		response.Error(w, apierror.BadRequest("unsupported currency"))
	case errors.Is(err, service.ErrUpstream):
		h.logger.Warn("exchange rate upstream failed",
			zap.String("request_id", requestID(r)),
			zap.Error(err))
		response.Error(w, apierror.BadGateway("exchange rates are unavailable"))
	default:
		serverError(w, r, h.logger, "exchange rate lookup failed", err)
	}
}
