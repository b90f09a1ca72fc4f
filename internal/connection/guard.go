package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user_api/internal/storage"
)

// State 是連線狀態
type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

const (
	connectKey            = "connect"
	defaultAttemptTimeout = 10 * time.Second
)

// Connector 建立一條新的資料庫連線
type Connector interface {
	Connect(ctx context.Context) (storage.Conn, error)
}

// ConnectorFunc 讓普通函式實作 Connector
type ConnectorFunc func(ctx context.Context) (storage.Conn, error)

func (f ConnectorFunc) Connect(ctx context.Context) (storage.Conn, error) {
	return f(ctx)
}

// URIConnector 透過 storage.Open 連線
func URIConnector(uri string, opts storage.Options) Connector {
	return ConnectorFunc(func(ctx context.Context) (storage.Conn, error) {
		return storage.Open(ctx, uri, opts)
	})
}

// Status 是 Guard 狀態的快照
type Status struct {
	State          State      `json:"-"`
	StateName      string     `json:"state"`
	Attempts       int64      `json:"attempts"`
	LastError      string     `json:"last_error,omitempty"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
}

type Option func(*Guard)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithAttemptTimeout 限制單次連線嘗試（含 OnConnect）的時間
func WithAttemptTimeout(d time.Duration) Option {
	return func(g *Guard) { g.attemptTimeout = d }
}

// WithOnConnect 在每條新連線建立後執行，例如遷移或建立索引；失敗視為連線失敗
func WithOnConnect(fn func(ctx context.Context, conn storage.Conn) error) Option {
	return func(g *Guard) { g.onConnect = fn }
}

// Guard 負責延遲建立並追蹤資料庫連線
type Guard struct {
	connector      Connector
	onConnect      func(ctx context.Context, conn storage.Conn) error
	attemptTimeout time.Duration
	logger         *zap.Logger

	group    singleflight.Group
	attempts atomic.Int64

	mu             sync.RWMutex
	state          State
	conn           storage.Conn
	lastErr        error
	connectedSince time.Time
	closed         bool
}

func NewGuard(connector Connector, opts ...Option) *Guard {
	g := &Guard{
		connector:      connector,
		attemptTimeout: defaultAttemptTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connected 回報目前是否持有連線，不做任何 I/O
func (g *Guard) Connected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == Connected
}

// Conn 回傳目前的連線，未連線時為 nil
func (g *Guard) Conn() storage.Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conn
}

// EnsureConnected 已連線時直接返回；否則加入進行中的連線嘗試（沒有則發起一次）。
// ctx 只決定呼叫者等待多久，連線嘗試本身不會因此被取消。
func (g *Guard) EnsureConnected(ctx context.Context) error {
	if g.Connected() {
		return nil
	}

	ch := g.group.DoChan(connectKey, func() (interface{}, error) {
		return nil, g.connect()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &ConnectionError{Cause: ctx.Err()}
	}
}

func (g *Guard) connect() error {
	g.mu.RLock()
	connected, closed := g.state == Connected, g.closed
	g.mu.RUnlock()

	// 前一輪嘗試可能剛好在 fast path 與 DoChan 之間完成
	if connected {
		return nil
	}
	if closed {
		return &ConnectionError{Cause: ErrGuardClosed}
	}

	attempt := g.attempts.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), g.attemptTimeout)
	defer cancel()

	conn, err := g.connector.Connect(ctx)
	if err == nil && g.onConnect != nil {
		if err = g.onConnect(ctx, conn); err != nil {
			conn.Close()
		}
	}

	g.mu.Lock()
	if err == nil && g.closed {
		// Close 在嘗試期間被呼叫，新連線不得復活 Guard
		g.mu.Unlock()
		conn.Close()
		g.logger.Info("discarding connection established after close", zap.Int64("attempt", attempt))
		return &ConnectionError{Cause: ErrGuardClosed}
	}
	if err != nil {
		g.state = Disconnected
		g.conn = nil
		g.lastErr = err
		g.mu.Unlock()

		g.logger.Error("database connection error", zap.Int64("attempt", attempt), zap.Error(err))
		return &ConnectionError{Cause: err}
	}
	g.state = Connected
	g.conn = conn
	g.lastErr = nil
	g.connectedSince = time.Now()
	g.mu.Unlock()

	g.logger.Info("connected to database", zap.Int64("attempt", attempt))
	return nil
}

// Invalidate 將連線標記為失效並關閉，下一次 EnsureConnected 會重新連線
func (g *Guard) Invalidate(cause error) {
	g.invalidate(nil, cause)
}

// invalidate 在 expected 非 nil 時，只有目前連線仍是 expected 才轉換狀態
func (g *Guard) invalidate(expected storage.Conn, cause error) {
	g.mu.Lock()
	if g.state != Connected || (expected != nil && g.conn != expected) {
		g.mu.Unlock()
		return
	}
	conn := g.conn
	g.state = Disconnected
	g.conn = nil
	g.lastErr = cause
	g.mu.Unlock()

	g.logger.Warn("database connection lost", zap.Error(cause))
	if err := conn.Close(); err != nil {
		g.logger.Debug("closing stale connection", zap.Error(err))
	}
}

// Monitor 每隔 interval ping 一次目前的連線，直到 ctx 結束。
// 它只負責偵測斷線，不會主動重連。
func (g *Guard) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.ping(ctx, interval)
		}
	}
}

func (g *Guard) ping(ctx context.Context, timeout time.Duration) {
	conn := g.Conn()
	if conn == nil {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		g.invalidate(conn, err)
	}
}

func (g *Guard) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Status{
		State:     g.state,
		StateName: g.state.String(),
		Attempts:  g.attempts.Load(),
	}
	if g.lastErr != nil {
		s.LastError = g.lastErr.Error()
	}
	if g.state == Connected {
		since := g.connectedSince
		s.ConnectedSince = &since
	}
	return s
}

// Close 關閉目前的連線，供程序結束時使用。
// 關閉後 EnsureConnected 一律回傳 ErrGuardClosed，進行中的嘗試所建立的連線會被丟棄。
func (g *Guard) Close() error {
	g.mu.Lock()
	conn := g.conn
	g.closed = true
	g.state = Disconnected
	g.conn = nil
	g.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
