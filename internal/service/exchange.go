package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketplace-rest-api/internal/cache"
	"marketplace-rest-api/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCurrency is returned for a currency that is not a 3-letter code
	// or that the upstream does not quote.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrUpstream is returned when the rates API fails or answers unsuccessfully.
	ErrUpstream = errors.New("exchange rate upstream failure")
)

// ExchangeRates are the quotes for one base currency.
type ExchangeRates struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// ExchangeConfig configures ExchangeRateService.
type ExchangeConfig struct {
	APIURL   string
	APIKey   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// ExchangeRateService fetches currency rates and caches them per base.
type ExchangeRateService struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	ttl        time.Duration
	cache      cache.Cache
	logger     *zap.Logger
}

// NewExchangeRateService creates an exchange rate service. c may be nil.
func NewExchangeRateService(cfg ExchangeConfig, c cache.Cache, logger *zap.Logger) *ExchangeRateService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExchangeRateService{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		ttl:        cfg.CacheTTL,
		cache:      c,
		logger:     logger,
	}
}

// Rates returns quotes for base, from cache when possible.
func (s *ExchangeRateService) Rates(ctx context.Context, base string) (*ExchangeRates, error) {
	if !money.IsCurrencyCode(base) {
		return nil, ErrInvalidCurrency
	}
	base = strings.ToUpper(base)
	key := cache.ExchangeRatesKey(base)

	if s.cache != nil {
		var cached ExchangeRates
		if cache.GetJSON(ctx, s.cache, key, &cached) {
			return &cached, nil
		}
	}

	rates, err := s.fetch(ctx, base)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, rates, s.ttl); err != nil {
			s.logger.Warn("failed to cache exchange rates", zap.String("base", base), zap.Error(err))
		}
	}
	return rates, nil
}

func (s *ExchangeRateService) fetch(ctx context.Context, base string) (*ExchangeRates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed body", ErrUpstream)
	}

	doc := gjson.ParseBytes(body)
	if result := doc.Get("result").String(); result != "success" {
		if doc.Get("error-type").String() == "unsupported-code" {
			return nil, ErrInvalidCurrency
		}
		return nil, fmt.Errorf("%w: result %q", ErrUpstream, result)
	}

	rates := &ExchangeRates{
		Base:  base,
		Rates: make(map[string]decimal.Decimal),
	}
	doc.Get("rates").ForEach(func(code, value gjson.Result) bool {
		rate, err := decimal.NewFromString(value.Raw)
		if err == nil {
			rates.Rates[strings.ToUpper(code.String())] = rate
		}
		return true
	})
	if len(rates.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates", ErrUpstream)
	}
	if ts := doc.Get("time_last_update_unix").Int(); ts > 0 {
		rates.UpdatedAt = time.Unix(ts, 0).UTC()
	} else {
		rates.UpdatedAt = time.Now().UTC()
	}
	return rates, nil
}

// Convert converts amount from one currency to another, rounded to 2 places.
func (s *ExchangeRateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if !money.IsCurrencyCode(from) || !money.IsCurrencyCode(to) {
		return decimal.Zero, ErrInvalidCurrency
	}
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount.Round(2), nil
	}

	rates, err := s.Rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates.Rates[to]
	if !ok {
		return decimal.Zero, ErrInvalidCurrency
	}
	return money.Convert(amount, rate), nil
}
