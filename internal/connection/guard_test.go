package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user_api/internal/storage"
)

type fakeConn struct {
	mu      sync.Mutex
	pingErr error
	closed  atomic.Bool
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) failPings(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

type fakeConnector struct {
	calls   atomic.Int32
	err     error
	release chan struct{}

	mu    sync.Mutex
	conns []*fakeConn
}

func (f *fakeConnector) Connect(ctx context.Context) (storage.Conn, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	conn := &fakeConn{}
	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()
	return conn, nil
}

func (f *fakeConnector) last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[len(f.conns)-1]
}

func TestEnsureConnectedFastPath(t *testing.T) {
	connector := &fakeConnector{}
	guard := NewGuard(connector)

	assert.False(t, guard.Connected())
	assert.Nil(t, guard.Conn())

	require.NoError(t, guard.EnsureConnected(context.Background()))
	require.NoError(t, guard.EnsureConnected(context.Background()))

	assert.True(t, guard.Connected())
	assert.Same(t, connector.last(), guard.Conn())
	assert.Equal(t, int32(1), connector.calls.Load())
	assert.Equal(t, int64(1), guard.Status().Attempts)
}

func TestEnsureConnectedSingleFlight(t *testing.T) {
	connector := &fakeConnector{release: make(chan struct{})}
	guard := NewGuard(connector)

	const callers = 20
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- guard.EnsureConnected(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return connector.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(connector.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), connector.calls.Load())
	assert.True(t, guard.Connected())
}

func TestEnsureConnectedFailure(t *testing.T) {
	cause := errors.New("server selection timeout")
	connector := &fakeConnector{err: cause}
	guard := NewGuard(connector)

	err := guard.EnsureConnected(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, cause)
	assert.False(t, guard.Connected())

	status := guard.Status()
	assert.Equal(t, Disconnected, status.State)
	assert.Equal(t, "disconnected", status.StateName)
	assert.Equal(t, cause.Error(), status.LastError)
	assert.Nil(t, status.ConnectedSince)

	// 沒有內部重試，由呼叫者再次觸發
	require.Error(t, guard.EnsureConnected(context.Background()))
	assert.Equal(t, int32(2), connector.calls.Load())
}

func TestEnsureConnectedMissingURI(t *testing.T) {
	guard := NewGuard(URIConnector("", storage.Options{}))

	err := guard.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, storage.ErrMissingURI)
	assert.False(t, guard.Connected())
}

func TestOnConnectFailureClosesConnection(t *testing.T) {
	connector := &fakeConnector{}
	hookErr := errors.New("migration failed")
	guard := NewGuard(connector, WithOnConnect(func(ctx context.Context, conn storage.Conn) error {
		return hookErr
	}))

	err := guard.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, hookErr)
	assert.False(t, guard.Connected())
	assert.True(t, connector.last().closed.Load())
}

func TestEnsureConnectedCallerGivesUp(t *testing.T) {
	connector := &fakeConnector{release: make(chan struct{})}
	guard := NewGuard(connector)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- guard.EnsureConnected(ctx) }()

	require.Eventually(t, func() bool { return connector.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// 嘗試本身不受呼叫者取消影響
	close(connector.release)
	require.Eventually(t, guard.Connected, time.Second, 5*time.Millisecond)
}

func TestMonitorInvalidatesDeadConnection(t *testing.T) {
	connector := &fakeConnector{}
	guard := NewGuard(connector)
	require.NoError(t, guard.EnsureConnected(context.Background()))

	conn := connector.last()
	conn.failPings(errors.New("connection reset by peer"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go guard.Monitor(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return !guard.Connected() }, time.Second, 5*time.Millisecond)
	assert.True(t, conn.closed.Load())
	assert.Equal(t, "connection reset by peer", guard.Status().LastError)

	require.NoError(t, guard.EnsureConnected(context.Background()))
	assert.Equal(t, int32(2), connector.calls.Load())
	assert.NotSame(t, conn, guard.Conn())
}

func TestInvalidateIgnoresReplacedConnection(t *testing.T) {
	connector := &fakeConnector{}
	guard := NewGuard(connector)
	require.NoError(t, guard.EnsureConnected(context.Background()))

	guard.invalidate(&fakeConn{}, errors.New("stale ping"))
	assert.True(t, guard.Connected())

	guard.Invalidate(errors.New("driver reported network error"))
	assert.False(t, guard.Connected())
	assert.True(t, connector.last().closed.Load())
}

func TestClose(t *testing.T) {
	connector := &fakeConnector{}
	guard := NewGuard(connector)

	require.NoError(t, guard.EnsureConnected(context.Background()))
	require.NoError(t, guard.Close())
	assert.False(t, guard.Connected())
	assert.True(t, connector.last().closed.Load())

	err := guard.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, ErrGuardClosed)
	assert.Equal(t, int32(1), connector.calls.Load())
	assert.NoError(t, guard.Close())
}

func TestCloseDuringAttemptDiscardsConnection(t *testing.T) {
	connector := &fakeConnector{release: make(chan struct{})}
	guard := NewGuard(connector)

	done := make(chan error, 1)
	go func() { done <- guard.EnsureConnected(context.Background()) }()

	require.Eventually(t, func() bool { return connector.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, guard.Close())
	close(connector.release)

	err := <-done
	assert.ErrorIs(t, err, ErrGuardClosed)

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.False(t, guard.Connected())
	assert.Nil(t, guard.Conn())
	assert.True(t, connector.last().closed.Load())
}
