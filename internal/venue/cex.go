package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"arbitrage/internal/models"

	"github.com/shopspring/decimal"
)

// CEXConfig is everything a central-limit-order-book adapter needs: its
// identity, REST base URL, credentials, and the pairs it quotes. One
// instantiation configured with Binance's endpoint shapes gives a
// Binance-style adapter: symbol join with no separator, bid/ask
// book-ticker endpoint, depth endpoint, flat taker fee.
type CEXConfig struct {
	VenueName    string
	APIURL       string
	APIKey       string
	APISecret    string
	TradingPairs []models.TradingPair
	TakerFee     decimal.Decimal
	MakerFee     decimal.Decimal
	RateLimit    float64
	RateBurst    float64

	// WSURL, if set, points at a streaming ticker feed. When present,
	// NewCEXAdapter starts a TickerStream and Quote prefers its cache
	// over a REST round trip. Left empty, the adapter is REST-only.
	WSURL string
}

// CEXAdapter implements Adapter against a central limit order book venue
// over REST, with an optional WebSocket ticker stream (CEXConfig.WSURL),
// HMAC-SHA256 signing requests that touch account state.
// Construction is data-driven (CEXConfig) rather than one Go type per
// venue, since exchanges in this class differ only in these fields plus
// response field names, and their book-ticker/depth endpoints already
// converge on the same shape.
type CEXAdapter struct {
	cfg    CEXConfig
	rest   *RESTClient
	pairs  map[string]models.TradingPair
	tickMu sync.RWMutex
	ticks  map[string]cachedTick
	stream *TickerStream
}

type cachedTick struct {
	quote   models.Quote
	fetched time.Time
}

const tickerFreshness = 2 * time.Second

// NewCEXAdapter builds an adapter for one venue. If cfg.WSURL is set, it
// also starts a best-effort streaming ticker cache; a dial failure here
// is non-fatal, since Quote always falls back to REST.
func NewCEXAdapter(cfg CEXConfig) *CEXAdapter {
	pairs := make(map[string]models.TradingPair, len(cfg.TradingPairs))
	bySymbol := make(map[string]models.TradingPair, len(cfg.TradingPairs))
	for _, p := range cfg.TradingPairs {
		pairs[p.Symbol()] = p
		bySymbol[p.Base()+p.Quote()] = p
	}

	a := &CEXAdapter{
		cfg:   cfg,
		rest:  NewRESTClient(DefaultHTTPClientConfig(), cfg.RateLimit, cfg.RateBurst),
		pairs: pairs,
		ticks: make(map[string]cachedTick),
	}

	if cfg.WSURL != "" {
		a.stream = NewTickerStream(cfg.VenueName, cfg.WSURL, bySymbol, nil)
		go a.stream.Start(context.Background())
	}

	return a
}

func (a *CEXAdapter) Name() string { return a.cfg.VenueName }

func (a *CEXAdapter) SupportsPair(pair models.TradingPair) bool {
	_, ok := a.pairs[pair.Symbol()]
	return ok
}

func (a *CEXAdapter) SupportedPairs(_ context.Context) ([]models.TradingPair, error) {
	out := make([]models.TradingPair, 0, len(a.pairs))
	for _, p := range a.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol() < out[j].Symbol() })
	return out, nil
}

func (a *CEXAdapter) symbol(pair models.TradingPair) string {
	return pair.Base() + pair.Quote()
}

// Quote serves the live WebSocket ticker cache when one is running and
// fresh, then the REST-polled cache when it is younger than
// tickerFreshness, and only then falls back to the REST book-ticker
// endpoint.
func (a *CEXAdapter) Quote(ctx context.Context, pair models.TradingPair) (models.Quote, error) {
	if a.stream != nil {
		if q, ok := a.stream.Quote(pair, tickerFreshness); ok {
			return q, nil
		}
	}

	a.tickMu.RLock()
	cached, ok := a.ticks[pair.Symbol()]
	a.tickMu.RUnlock()
	if ok && time.Since(cached.fetched) < tickerFreshness {
		return cached.quote, nil
	}

	symbol := a.symbol(pair)
	reqURL := fmt.Sprintf("%s/api/v3/ticker/bookTicker?symbol=%s", a.cfg.APIURL, symbol)

	body, err := a.getPublic(ctx, reqURL)
	if err != nil {
		return models.Quote{}, NewError(a.cfg.VenueName, "quote", err)
	}

	var ticker struct {
		Symbol   string `json:"symbol"`
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
		Volume   string `json:"volume"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return models.Quote{}, NewError(a.cfg.VenueName, "quote", err)
	}

	bid, err := decimal.NewFromString(ticker.BidPrice)
	if err != nil {
		return models.Quote{}, NewMarketDataError(a.cfg.VenueName, "quote", fmt.Errorf("bad bid price %q: %w", ticker.BidPrice, err))
	}
	ask, err := decimal.NewFromString(ticker.AskPrice)
	if err != nil {
		return models.Quote{}, NewMarketDataError(a.cfg.VenueName, "quote", fmt.Errorf("bad ask price %q: %w", ticker.AskPrice, err))
	}
	if ask.LessThanOrEqual(bid) {
		return models.Quote{}, NewMarketDataError(a.cfg.VenueName, "quote", fmt.Errorf("crossed book: bid %s >= ask %s", bid, ask))
	}

	q := models.Quote{
		Venue:     a.cfg.VenueName,
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}
	if vol, err := decimal.NewFromString(ticker.Volume); err == nil {
		q.Volume24h = decimal.NewNullDecimal(vol)
	}

	a.tickMu.Lock()
	a.ticks[pair.Symbol()] = cachedTick{quote: q, fetched: time.Now()}
	a.tickMu.Unlock()

	return q, nil
}

func (a *CEXAdapter) OrderBook(ctx context.Context, pair models.TradingPair, depth int) (models.OrderBook, error) {
	symbol := a.symbol(pair)
	reqURL := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d", a.cfg.APIURL, symbol, depth)

	body, err := a.getPublic(ctx, reqURL)
	if err != nil {
		return models.OrderBook{}, NewError(a.cfg.VenueName, "order_book", err)
	}

	var raw struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.OrderBook{}, NewError(a.cfg.VenueName, "order_book", err)
	}

	toLevels := func(rows [][2]string) []models.OrderBookLevel {
		levels := make([]models.OrderBookLevel, 0, len(rows))
		for _, r := range rows {
			price, err1 := decimal.NewFromString(r[0])
			qty, err2 := decimal.NewFromString(r[1])
			if err1 != nil || err2 != nil {
				continue
			}
			levels = append(levels, models.OrderBookLevel{Price: price, Quantity: qty})
		}
		return levels
	}

	return models.OrderBook{
		Venue:     a.cfg.VenueName,
		Pair:      pair,
		Bids:      toLevels(raw.Bids),
		Asks:      toLevels(raw.Asks),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *CEXAdapter) TradingFees(_ context.Context, _ models.TradingPair) (models.TradingFees, error) {
	return models.TradingFees{MakerFee: a.cfg.MakerFee, TakerFee: a.cfg.TakerFee}, nil
}

func (a *CEXAdapter) Balances(ctx context.Context) (map[string]models.Balance, error) {
	body, err := a.getSigned(ctx, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, NewError(a.cfg.VenueName, "balances", err)
	}

	var resp struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewError(a.cfg.VenueName, "balances", err)
	}

	out := make(map[string]models.Balance)
	for _, b := range resp.Balances {
		free, _ := decimal.NewFromString(b.Free)
		locked, _ := decimal.NewFromString(b.Locked)
		total := free.Add(locked)
		if total.IsZero() {
			continue
		}
		out[b.Asset] = models.Balance{Asset: b.Asset, Free: free, Locked: locked, Total: total}
	}
	return out, nil
}

// sign computes an HMAC-SHA256 hex signature over a canonical query
// string.
func (a *CEXAdapter) sign(queryString string) string {
	h := hmac.New(sha256.New, []byte(a.cfg.APISecret))
	h.Write([]byte(queryString))
	return hex.EncodeToString(h.Sum(nil))
}

func (a *CEXAdapter) getPublic(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	return a.doRequest(req)
}

func (a *CEXAdapter) getSigned(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	signature := a.sign(query)

	reqURL := fmt.Sprintf("%s%s?%s&signature=%s", a.cfg.APIURL, endpoint, query, signature)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", a.cfg.APIKey)

	return a.doRequest(req)
}

func (a *CEXAdapter) doRequest(req *http.Request) ([]byte, error) {
	resp, err := a.rest.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d: %s", a.cfg.VenueName, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Execution surface is a stub in every shipped adapter: placing or
// tracking real orders is out of scope for the discovery engine.

func (a *CEXAdapter) PlaceBuy(_ context.Context, _ models.TradingPair, _ decimal.Decimal, _ *decimal.Decimal) (models.Trade, error) {
	return models.Trade{}, NewError(a.cfg.VenueName, "place_buy", ErrNotImplemented)
}

func (a *CEXAdapter) PlaceSell(_ context.Context, _ models.TradingPair, _ decimal.Decimal, _ *decimal.Decimal) (models.Trade, error) {
	return models.Trade{}, NewError(a.cfg.VenueName, "place_sell", ErrNotImplemented)
}

func (a *CEXAdapter) OrderStatus(_ context.Context, _ string) (models.Trade, error) {
	return models.Trade{}, NewError(a.cfg.VenueName, "order_status", ErrNotImplemented)
}

func (a *CEXAdapter) Cancel(_ context.Context, _ string) error {
	return NewError(a.cfg.VenueName, "cancel", ErrNotImplemented)
}

var _ Adapter = (*CEXAdapter)(nil)
