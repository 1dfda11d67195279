package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"currency-bridge/internal/config"
	"currency-bridge/internal/model"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiVersion       = "/v1"
	dateLatest       = "latest"
	dateEndpoint     = "/currency-api@%s"
	ccyEndpoint      = "/currencies/%s.json"
	emptyCcyEndpoint = "/currencies.json"

	// BaseCurrency - валюта, относительно которой хранятся все таблицы
	BaseCurrency = "usd"
)

var (
	ErrDateUnavailable = errors.New("Current date is unavailable. Try different date.")
	ErrRateLimited     = errors.New("Too many requests")
)

// Fetcher - источник дневных таблиц курсов
type Fetcher interface {
	FetchTable(ctx context.Context, date string) (*model.RateTable, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	perSecond  float64
	logger     *zap.Logger
}

func NewClient(cfg config.APIConfig, logger *zap.Logger) *Client {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:    cfg.ExchangeAPIURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		perSecond:  perSecond,
		logger:     logger,
	}
}

// BuildURL собирает адрес таблицы; пустая дата означает latest, пустая валюта - список валют
func (c *Client) BuildURL(date, ccy string) string {
	if date == "" {
		date = dateLatest
	}
	ccyPath := emptyCcyEndpoint
	if ccy != "" {
		ccyPath = fmt.Sprintf(ccyEndpoint, ccy)
	}
	return c.baseURL + fmt.Sprintf(dateEndpoint, date) + apiVersion + ccyPath
}

// FetchTable загружает таблицу курсов к USD на дату
func (c *Client) FetchTable(ctx context.Context, date string) (*model.RateTable, error) {
	if !c.limiter.Allow() {
		c.logger.Warn("Upstream rate limit reached", zap.String("date", date))
		return nil, fmt.Errorf("%w. Rate limit is %g request per second.", ErrRateLimited, c.perSecond)
	}

	apiURL := c.BuildURL(date, BaseCurrency)
	c.logger.Debug("Fetching rate table", zap.String("date", date), zap.String("url", apiURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("API request canceled")
		}
		c.logger.Error("API request failed", zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("API returned error status",
			zap.String("date", date),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, ErrDateUnavailable
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var table model.RateTable
	if err := json.Unmarshal(data, &table); err != nil {
		c.logger.Error("Invalid JSON from currency API",
			zap.String("date", date),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if table.Date == "" || len(table.USD) == 0 {
		return nil, fmt.Errorf("empty rate table for %q", date)
	}

	c.logger.Debug("Rate table fetched",
		zap.String("date", table.Date),
		zap.Int("currencies", len(table.USD)),
	)
	return &table, nil
}

var _ Fetcher = (*Client)(nil)
