package venue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"arbitrage/internal/models"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// tickerStreamConfig tunes the reconnect behavior of a TickerStream.
type tickerStreamConfig struct {
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
}

func defaultTickerStreamConfig() tickerStreamConfig {
	return tickerStreamConfig{
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
	}
}

type streamState int32

const (
	streamDisconnected streamState = iota
	streamConnected
	streamReconnecting
	streamClosed
)

// tickerMessage is the wire shape this stream expects from a venue's
// ticker channel: best bid/ask for one symbol. Venues that frame this
// differently need their own unmarshal step ahead of feed(); the cache
// and reconnect plumbing stay the same either way.
type tickerMessage struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
}

// TickerStream maintains a live best-bid/ask cache for one venue over a
// single WebSocket connection, reconnecting with exponential backoff on
// disconnect. It lets CEXAdapter.Quote skip a REST round trip on every
// scan tick once the stream is up; REST remains the fallback when the
// stream has never produced a fresh value for a symbol.
type TickerStream struct {
	venueName string
	wsURL     string
	cfg       tickerStreamConfig

	connMu sync.RWMutex
	conn   *websocket.Conn

	state      int32 // atomic streamState
	closeChan  chan struct{}
	closeOnce  sync.Once

	cacheMu sync.RWMutex
	cache   map[string]cachedTick

	// pairsBySymbol resolves an incoming wire symbol (e.g. "BTCUSDT") back
	// to the models.TradingPair the rest of the engine keys on.
	pairsBySymbol map[string]models.TradingPair

	onError func(error)
}

// NewTickerStream builds a stream for venueName pointed at wsURL, able to
// resolve wire ticker messages for any pair in pairsBySymbol (keyed by
// the venue's own symbol convention, e.g. base+quote concatenated). The
// stream does not connect until Start is called.
func NewTickerStream(venueName, wsURL string, pairsBySymbol map[string]models.TradingPair, onError func(error)) *TickerStream {
	return &TickerStream{
		venueName:     venueName,
		wsURL:         wsURL,
		cfg:           defaultTickerStreamConfig(),
		closeChan:     make(chan struct{}),
		cache:         make(map[string]cachedTick),
		pairsBySymbol: pairsBySymbol,
		onError:       onError,
	}
}

// Start dials the stream and begins the read/ping/reconnect loops in the
// background. It returns once the first connection attempt completes
// (success or failure); reconnection after that point happens silently.
func (s *TickerStream) Start(ctx context.Context) error {
	if err := s.dial(ctx); err != nil {
		atomic.StoreInt32(&s.state, int32(streamDisconnected))
		return err
	}
	atomic.StoreInt32(&s.state, int32(streamConnected))
	go s.readPump()
	go s.pingPump()
	return nil
}

func (s *TickerStream) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("ticker stream %s: dial: %w", s.venueName, err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// Quote returns the cached best bid/ask for pair if the stream has one
// fresher than maxAge.
func (s *TickerStream) Quote(pair models.TradingPair, maxAge time.Duration) (models.Quote, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	tick, ok := s.cache[pair.Symbol()]
	if !ok || time.Since(tick.fetched) >= maxAge {
		return models.Quote{}, false
	}
	return tick.quote, true
}

func (s *TickerStream) feed(pair models.TradingPair, bid, ask decimal.Decimal) {
	q := models.Quote{
		Venue:     s.venueName,
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}
	s.cacheMu.Lock()
	s.cache[pair.Symbol()] = cachedTick{quote: q, fetched: time.Now()}
	s.cacheMu.Unlock()
}

func (s *TickerStream) readPump() {
	defer s.handleDisconnect()

	for {
		select {
		case <-s.closeChan:
			return
		default:
		}

		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()
		if conn == nil {
			return
		}

		var msg tickerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if s.onError != nil {
				s.onError(fmt.Errorf("ticker stream %s: read: %w", s.venueName, err))
			}
			return
		}

		pair, ok := s.pairsBySymbol[msg.Symbol]
		if !ok {
			continue
		}
		bid, err1 := decimal.NewFromString(msg.Bid)
		ask, err2 := decimal.NewFromString(msg.Ask)
		if err1 != nil || err2 != nil {
			continue
		}
		s.feed(pair, bid, ask)
	}
}

func (s *TickerStream) pingPump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			return
		case <-ticker.C:
			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()
			if conn == nil || streamState(atomic.LoadInt32(&s.state)) != streamConnected {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.PongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.handleDisconnect()
				return
			}
		}
	}
}

func (s *TickerStream) handleDisconnect() {
	select {
	case <-s.closeChan:
		return
	default:
	}
	if streamState(atomic.LoadInt32(&s.state)) == streamReconnecting {
		return
	}
	atomic.StoreInt32(&s.state, int32(streamReconnecting))

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	go s.reconnectLoop()
}

func (s *TickerStream) reconnectLoop() {
	delay := s.cfg.InitialDelay
	for {
		select {
		case <-s.closeChan:
			return
		case <-time.After(delay):
		}

		if err := s.dial(context.Background()); err != nil {
			delay *= 2
			if delay > s.cfg.MaxDelay {
				delay = s.cfg.MaxDelay
			}
			continue
		}

		atomic.StoreInt32(&s.state, int32(streamConnected))
		go s.readPump()
		go s.pingPump()
		return
	}
}

// Close shuts down the stream and stops reconnecting.
func (s *TickerStream) Close() error {
	s.closeOnce.Do(func() { close(s.closeChan) })
	atomic.StoreInt32(&s.state, int32(streamClosed))

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
