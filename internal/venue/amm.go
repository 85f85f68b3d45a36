package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"arbitrage/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// routerABIJSON covers only the router call this adapter needs. It is
// built by hand rather than through abigen, favoring small, explicit
// wiring over generated code.
const routerABIJSON = `[
	{"name":"getAmountsOut","type":"function","stateMutability":"view",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

// poolFeeFactor converts an ask price into the corresponding bid for a
// 30bps constant-product pool: bid = ask * 0.997.
var poolFeeFactor = decimal.RequireFromString("0.997")

// AMMConfig configures one constant-product pool venue: its router
// contract, RPC endpoint, and a symbol -> on-chain address table (config
// driven, so new tokens don't need a rebuild).
type AMMConfig struct {
	VenueName      string
	RPCURL         string
	RouterAddress  string
	TokenAddresses map[string]string // symbol (upper) -> hex address
	TokenDecimals  map[string]uint8  // symbol (upper) -> ERC20 decimals
	TradingPairs   []models.TradingPair
	PoolFee        decimal.Decimal // e.g. 0.003 for a 30bps pool
	DepthStep      decimal.Decimal // base-asset quantity step between synthesized levels
}

// AMMAdapter implements Adapter over a Uniswap V2-shaped router by
// calling getAmountsOut directly via ethclient.CallContract — no
// transactions are ever sent from this adapter's read paths.
type AMMAdapter struct {
	cfg    AMMConfig
	client *ethclient.Client
	router common.Address
	abi    abi.ABI
	pairs  map[string]models.TradingPair
	mu     sync.Mutex // not taken by any method; ethclient's HTTP transport is safe for concurrent use
}

// NewAMMAdapter dials the configured RPC endpoint. Construction fails
// fast if the router ABI literal above doesn't parse or the RPC URL
// cannot be dialed; an HTTP endpoint is not contacted at dial time, so
// an unreachable one first surfaces as an error from Quote or OrderBook.
func NewAMMAdapter(ctx context.Context, cfg AMMConfig) (*AMMAdapter, error) {
	parsedABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("venue: parsing router abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, NewError(cfg.VenueName, "dial", err)
	}

	pairs := make(map[string]models.TradingPair, len(cfg.TradingPairs))
	for _, p := range cfg.TradingPairs {
		pairs[p.Symbol()] = p
	}

	return &AMMAdapter{
		cfg:    cfg,
		client: client,
		router: common.HexToAddress(cfg.RouterAddress),
		abi:    parsedABI,
		pairs:  pairs,
	}, nil
}

func (a *AMMAdapter) Name() string { return a.cfg.VenueName }

func (a *AMMAdapter) tokenAddress(symbol string) (common.Address, bool) {
	hex, ok := a.cfg.TokenAddresses[strings.ToUpper(symbol)]
	if !ok {
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}

func (a *AMMAdapter) tokenDecimals(symbol string) uint8 {
	if d, ok := a.cfg.TokenDecimals[strings.ToUpper(symbol)]; ok {
		return d
	}
	return 18
}

func (a *AMMAdapter) SupportsPair(pair models.TradingPair) bool {
	_, baseOK := a.tokenAddress(pair.Base())
	_, quoteOK := a.tokenAddress(pair.Quote())
	return baseOK && quoteOK
}

func (a *AMMAdapter) SupportedPairs(_ context.Context) ([]models.TradingPair, error) {
	out := make([]models.TradingPair, 0, len(a.pairs))
	for _, p := range a.pairs {
		if a.SupportsPair(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// getAmountsOut calls the router's getAmountsOut(amountIn, path) and
// returns the decoded amounts slice, manually packing and unpacking the
// ABI rather than relying on generated bindings.
func (a *AMMAdapter) getAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	input, err := a.abi.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("packing getAmountsOut: %w", err)
	}

	msg := ethereum.CallMsg{To: &a.router, Data: input}
	out, err := a.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("calling getAmountsOut: %w", err)
	}

	results, err := a.abi.Unpack("getAmountsOut", out)
	if err != nil {
		return nil, fmt.Errorf("unpacking getAmountsOut: %w", err)
	}
	amounts, ok := results[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, fmt.Errorf("unexpected getAmountsOut result shape")
	}
	return amounts, nil
}

func scaleUp(amount decimal.Decimal, decimals uint8) *big.Int {
	scaled := amount.Shift(int32(decimals))
	return scaled.BigInt()
}

func scaleDown(amount *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(amount, 0).Shift(-int32(decimals))
}

// Quote prices one base-asset unit through the pool: ask is the router's
// quoted price for 1 unit of base, bid is ask * poolFeeFactor (the fixed
// 30bps factor 0.997). AMMConfig.PoolFee does not change the bid here or
// in OrderBook; it only sets the fees TradingFees reports.
func (a *AMMAdapter) Quote(ctx context.Context, pair models.TradingPair) (models.Quote, error) {
	baseAddr, ok := a.tokenAddress(pair.Base())
	if !ok {
		return models.Quote{}, NewError(a.cfg.VenueName, "quote", fmt.Errorf("token not supported: %s", pair.Base()))
	}
	quoteAddr, ok := a.tokenAddress(pair.Quote())
	if !ok {
		return models.Quote{}, NewError(a.cfg.VenueName, "quote", fmt.Errorf("token not supported: %s", pair.Quote()))
	}

	baseDecimals := a.tokenDecimals(pair.Base())
	quoteDecimals := a.tokenDecimals(pair.Quote())

	oneUnit := scaleUp(decimal.NewFromInt(1), baseDecimals)
	amounts, err := a.getAmountsOut(ctx, oneUnit, []common.Address{baseAddr, quoteAddr})
	if err != nil {
		return models.Quote{}, NewError(a.cfg.VenueName, "quote", err)
	}

	ask := scaleDown(amounts[1], quoteDecimals)
	bid := ask.Mul(poolFeeFactor)

	return models.Quote{
		Venue:     a.cfg.VenueName,
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}, nil
}

// OrderBook synthesizes depth levels by repeatedly walking
// getAmountsOut at increasing quantities (depth * DepthStep), since an
// AMM pool has no discrete resting orders.
func (a *AMMAdapter) OrderBook(ctx context.Context, pair models.TradingPair, depth int) (models.OrderBook, error) {
	baseAddr, ok := a.tokenAddress(pair.Base())
	if !ok {
		return models.OrderBook{}, NewError(a.cfg.VenueName, "order_book", fmt.Errorf("token not supported: %s", pair.Base()))
	}
	quoteAddr, ok := a.tokenAddress(pair.Quote())
	if !ok {
		return models.OrderBook{}, NewError(a.cfg.VenueName, "order_book", fmt.Errorf("token not supported: %s", pair.Quote()))
	}

	baseDecimals := a.tokenDecimals(pair.Base())
	quoteDecimals := a.tokenDecimals(pair.Quote())
	path := []common.Address{baseAddr, quoteAddr}

	step := a.cfg.DepthStep
	if step.IsZero() {
		step = decimal.NewFromInt(100)
	}

	asks := make([]models.OrderBookLevel, 0, depth)
	bids := make([]models.OrderBookLevel, 0, depth)

	for i := 1; i <= depth; i++ {
		quantity := step.Mul(decimal.NewFromInt(int64(i)))
		amountIn := scaleUp(quantity, baseDecimals)

		amounts, err := a.getAmountsOut(ctx, amountIn, path)
		if err != nil {
			continue // a single failed level doesn't invalidate the rest
		}
		quoteOut := scaleDown(amounts[1], quoteDecimals)
		price := quoteOut.Div(quantity)

		asks = append(asks, models.OrderBookLevel{Price: price, Quantity: quantity})
		bids = append(bids, models.OrderBookLevel{Price: price.Mul(poolFeeFactor), Quantity: quantity})
	}

	return models.OrderBook{
		Venue:     a.cfg.VenueName,
		Pair:      pair,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *AMMAdapter) TradingFees(_ context.Context, _ models.TradingPair) (models.TradingFees, error) {
	fee := a.cfg.PoolFee
	if fee.IsZero() {
		fee = decimal.RequireFromString("0.003")
	}
	return models.TradingFees{MakerFee: fee, TakerFee: fee}, nil
}

// Balances reports on-chain ERC20/native balances for a connected
// wallet. Not wired to any signer in this adapter, so it always returns
// an empty set.
func (a *AMMAdapter) Balances(_ context.Context) (map[string]models.Balance, error) {
	return map[string]models.Balance{}, nil
}

func (a *AMMAdapter) PlaceBuy(_ context.Context, _ models.TradingPair, _ decimal.Decimal, _ *decimal.Decimal) (models.Trade, error) {
	return models.Trade{}, NewError(a.cfg.VenueName, "place_buy", ErrNotImplemented)
}

func (a *AMMAdapter) PlaceSell(_ context.Context, _ models.TradingPair, _ decimal.Decimal, _ *decimal.Decimal) (models.Trade, error) {
	return models.Trade{}, NewError(a.cfg.VenueName, "place_sell", ErrNotImplemented)
}

func (a *AMMAdapter) OrderStatus(_ context.Context, _ string) (models.Trade, error) {
	return models.Trade{}, NewError(a.cfg.VenueName, "order_status", ErrNotImplemented)
}

// Cancel always fails: on-chain swaps cannot be cancelled once
// submitted.
func (a *AMMAdapter) Cancel(_ context.Context, _ string) error {
	return NewError(a.cfg.VenueName, "cancel", fmt.Errorf("on-chain swaps cannot be cancelled"))
}

var _ Adapter = (*AMMAdapter)(nil)
