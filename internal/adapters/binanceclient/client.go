package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	defaultPageSize   = 1500
	defaultRPS        = 5
	defaultMaxRetries = 5
)

// Client implements ports.MarketData using the go-binance futures REST API.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	limiter       *rate.Limiter
	pageSize      int
	maxRetries    int
	retryMin      time.Duration
	retryMax      time.Duration
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	// BaseURL overrides the production/testnet endpoint when set.
	BaseURL string
	Logger  ports.Logger
	// RequestsPerSecond caps outgoing REST calls.
	RequestsPerSecond float64
	// PageSize is the number of klines requested per call when paging a range.
	PageSize int
	// MaxRetries bounds retries of a page after rate-limit or connection errors.
	MaxRetries int
	RetryMin   time.Duration
	RetryMax   time.Duration
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryMin, retryMax := cfg.RetryMin, cfg.RetryMax
	if retryMin <= 0 {
		retryMin = 500 * time.Millisecond
	}
	if retryMax < retryMin {
		retryMax = 30 * time.Second
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		pageSize:      pageSize,
		maxRetries:    maxRetries,
		retryMin:      retryMin,
		retryMax:      retryMax,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015:
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrInvalidSymbol
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.limiter.Wait(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s", symbol), op)
	}

	price, err := strconv.ParseFloat(tickers[0].LastPrice, 64)
	if err != nil {
		return 0, c.handleError(ctx, fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err), op)
	}
	return price, nil
}

// GetKlines retrieves the most recent klines for the given symbol.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	var binanceKlines []*futures.Kline
	err := c.withRetry(ctx, op, func() error {
		var err error
		binanceKlines, err = c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.translateAll(ctx, op, binanceKlines, symbol, interval)
}

// GetKlinesRange fetches all klines for a symbol/interval between start and end time,
// one rate-limited page at a time.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	if !end.After(start) {
		return nil, fmt.Errorf("%s: end %s not after start %s: %w", op, end, start, ports.ErrInvalidRequest)
	}

	var allKlines []*domain.Kline
	from := start
	for page := 1; ; page++ {
		var klines []*futures.Kline
		err := c.withRetry(ctx, op, func() error {
			var err error
			klines, err = c.futuresClient.NewKlinesService().
				Symbol(symbol).
				Interval(interval).
				StartTime(from.UnixMilli()).
				EndTime(end.UnixMilli()).
				Limit(c.pageSize).
				Do(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}
		translated, err := c.translateAll(ctx, op, klines, symbol, interval)
		if err != nil {
			return nil, err
		}
		allKlines = append(allKlines, translated...)
		c.logger.Debug(ctx, "Fetched kline page", map[string]interface{}{"symbol": symbol, "page": page, "rows": len(klines)})

		from = time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		if !from.Before(end) || len(klines) < c.pageSize {
			break
		}
	}

	return allKlines, nil
}

// withRetry waits on the rate limiter before every attempt and backs off after
// rate-limit or connection errors. Other errors are returned immediately.
func (c *Client) withRetry(ctx context.Context, op string, call func() error) error {
	b := &backoff.Backoff{Min: c.retryMin, Max: c.retryMax, Factor: 2, Jitter: true}
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.handleError(ctx, err, op)
		}
		err := c.handleError(ctx, call(), op)
		if err == nil {
			return nil
		}
		retryable := errors.Is(err, ports.ErrRateLimited) || errors.Is(err, ports.ErrConnectionFailed)
		if !retryable || int(b.Attempt()) >= c.maxRetries {
			return err
		}
		delay := b.Duration()
		c.logger.Warn(ctx, op+": retrying", map[string]interface{}{"attempt": int(b.Attempt()), "delay": delay.String()})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return c.handleError(ctx, ctx.Err(), op)
		}
	}
}

func (c *Client) translateAll(ctx context.Context, op string, binanceKlines []*futures.Kline, symbol, interval string) ([]*domain.Kline, error) {
	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}
	return domainKlines, nil
}

// --- Translation Helpers ---

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	values := [5]float64{}
	for i, raw := range [5]string{bk.Open, bk.High, bk.Low, bk.Close, bk.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s '%s': %w", [5]string{"open", "high", "low", "close", "volume"}[i], raw, err)
		}
		values[i] = v
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime: time.UnixMilli(bk.CloseTime).UTC(),
		Symbol:    symbol,
		Interval:  interval,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
