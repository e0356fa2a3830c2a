package oracle

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
)

// HTTPFeed queries a price service:
//
//	GET {baseURL}/v1/price?oracle=<addr>&base=<mint>&quote=<mint>
//	{"price": "2.5", "publish_time": 1700000000}
type HTTPFeed struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger

	MaxAge time.Duration
	Now    func() time.Time
}

func NewHTTPFeed(baseURL string, maxAge time.Duration, rps float64, log *zap.Logger) *HTTPFeed {
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return &HTTPFeed{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: lim,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "oracle-http",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("oracle breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		log:    log,
		MaxAge: maxAge,
		Now:    time.Now,
	}
}

func (f *HTTPFeed) Rate(ctx context.Context, oracle *account.Info, base, quote address.Address) (*big.Rat, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrOracleUnavailable, err)
	}
	body, err := f.breaker.Execute(func() (any, error) {
		return f.fetch(ctx, oracle.Key, base, quote)
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrOracleUnavailable, err)
	}
	return f.parse(body.([]byte))
}

func (f *HTTPFeed) fetch(ctx context.Context, oracle, base, quote address.Address) ([]byte, error) {
	q := url.Values{}
	q.Set("oracle", oracle.String())
	q.Set("base", base.String())
	q.Set("quote", quote.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/v1/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle price %s/%s: status %d", base, quote, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (f *HTTPFeed) parse(body []byte) (*big.Rat, error) {
	if !gjson.ValidBytes(body) {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "malformed oracle response")
	}
	res := gjson.GetManyBytes(body, "price", "publish_time")
	if !res[0].Exists() || !res[1].Exists() {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "oracle response missing price or publish_time")
	}
	price, err := decimal.NewFromString(res[0].String())
	if err != nil {
		return nil, errs.Wrap(errs.ErrOracleUnavailable, err)
	}
	if !price.IsPositive() {
		return nil, errs.Wrapf(errs.ErrOracleUnavailable, "non-positive price %s", price)
	}
	if err := checkFresh(time.Unix(res[1].Int(), 0), f.Now(), f.MaxAge); err != nil {
		return nil, err
	}
	f.log.Debug("oracle price", zap.String("price", price.String()))
	return price.Rat(), nil
}
