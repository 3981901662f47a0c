package binanceclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendBot/internal/adapters/logger"
	"trendBot/internal/ports"
)

var hourStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// klineServer serves n hourly klines starting at hourStart, honoring startTime and limit.
func klineServer(t *testing.T, n int, failFirst int32, failCode int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/ping":
			fmt.Fprint(w, "{}")
			return
		case "/fapi/v1/klines":
		default:
			http.NotFound(w, r)
			return
		}
		call := atomic.AddInt32(&calls, 1)
		if call <= failFirst {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"code":%d,"msg":"failure"}`, failCode)
			return
		}

		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		from := int64(0)
		if s := q.Get("startTime"); s != "" {
			from, _ = strconv.ParseInt(s, 10, 64)
		}

		var rows []string
		for i := 0; i < n && len(rows) < limit; i++ {
			open := hourStart.Add(time.Duration(i) * time.Hour).UnixMilli()
			if open < from {
				continue
			}
			closeMs := open + time.Hour.Milliseconds() - 1
			price := 100 + i
			rows = append(rows, fmt.Sprintf(`[%d,"%d","%d","%d","%d","10",%d,"0",1,"0","0","0"]`,
				open, price, price+2, price-1, price+1, closeMs))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, baseURL string, pageSize int) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:           baseURL,
		Logger:            logger.Nop{},
		RequestsPerSecond: 1000,
		PageSize:          pageSize,
		MaxRetries:        3,
		RetryMin:          time.Millisecond,
		RetryMax:          2 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetKlinesRange_Pages(t *testing.T) {
	srv, calls := klineServer(t, 5, 0, 0)
	c := newTestClient(t, srv.URL, 2)

	klines, err := c.GetKlinesRange(context.Background(), "BTCUSDT", "1h", hourStart, hourStart.Add(10*time.Hour))
	require.NoError(t, err)
	require.Len(t, klines, 5)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))

	for i, k := range klines {
		assert.Equal(t, hourStart.Add(time.Duration(i)*time.Hour), k.OpenTime)
		assert.Equal(t, "BTCUSDT", k.Symbol)
		assert.Equal(t, "1h", k.Interval)
		assert.Equal(t, float64(101+i), k.Close)
	}
}

func TestGetKlinesRange_InvalidWindow(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", 2)
	_, err := c.GetKlinesRange(context.Background(), "BTCUSDT", "1h", hourStart, hourStart)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestGetKlines_RetriesRateLimit(t *testing.T) {
	srv, calls := klineServer(t, 3, 2, -1003)
	c := newTestClient(t, srv.URL, 0)

	klines, err := c.GetKlines(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	assert.Len(t, klines, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestGetKlines_GivesUpAfterMaxRetries(t *testing.T) {
	srv, calls := klineServer(t, 3, 100, -1003)
	c := newTestClient(t, srv.URL, 0)

	_, err := c.GetKlines(context.Background(), "BTCUSDT", "1h", 10)
	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Equal(t, int32(4), atomic.LoadInt32(calls))
}

func TestGetKlines_InvalidSymbolNotRetried(t *testing.T) {
	srv, calls := klineServer(t, 3, 100, -1121)
	c := newTestClient(t, srv.URL, 0)

	_, err := c.GetKlines(context.Background(), "NOPE", "1h", 10)
	assert.ErrorIs(t, err, ports.ErrInvalidSymbol)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestPing(t *testing.T) {
	srv, _ := klineServer(t, 0, 0, 0)
	c := newTestClient(t, srv.URL, 0)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestTranslateBinanceKline_BadNumber(t *testing.T) {
	_, err := translateBinanceKline(nil, "X", "1h")
	assert.Error(t, err)
}
