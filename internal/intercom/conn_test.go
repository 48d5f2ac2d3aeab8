package intercom

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// scriptedAuthority 按脚本应答的假 authority，读取请求帧并回写响应帧。
type scriptedAuthority struct {
	mu         sync.Mutex
	conns      []net.Conn
	dials      int
	handler    func(f frame) []frame
	closeAfter int
}

func (a *scriptedAuthority) dialer() Dialer {
	return func(ctx context.Context, endpoint string) (net.Conn, error) {
		client, server := net.Pipe()
		a.mu.Lock()
		a.dials++
		a.conns = append(a.conns, server)
		a.mu.Unlock()
		go a.serve(server)
		return client, nil
	}
}

func (a *scriptedAuthority) serve(conn net.Conn) {
	dec := json.NewDecoder(conn)
	served := 0
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			return
		}
		served++
		a.mu.Lock()
		limit := a.closeAfter
		a.mu.Unlock()
		if limit > 0 && served >= limit {
			_ = conn.Close()
			return
		}
		for _, reply := range a.handler(f) {
			data, err := json.Marshal(reply)
			if err != nil {
				return
			}
			if _, err := conn.Write(append(data, '\n')); err != nil {
				return
			}
		}
	}
}

func (a *scriptedAuthority) push(t *testing.T, msg proto.Notification) {
	t.Helper()
	body, err := proto.EncodeMessage(msg)
	require.NoError(t, err)
	data, err := json.Marshal(frame{Kind: frameNotification, Body: body})
	require.NoError(t, err)
	a.mu.Lock()
	conn := a.conns[len(a.conns)-1]
	a.mu.Unlock()
	_, err = conn.Write(append(data, '\n'))
	require.NoError(t, err)
}

func (a *scriptedAuthority) dialCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dials
}

func echoStateHandler(t *testing.T) func(f frame) []frame {
	return func(f frame) []frame {
		msg, err := proto.DecodeMessage(f.Body)
		require.NoError(t, err)
		switch msg.(type) {
		case *proto.GetStateRequest:
			body, err := proto.EncodeMessage(&proto.GetStateResponse{
				State: proto.WalletState{Status: proto.StatusReady},
			})
			require.NoError(t, err)
			return []frame{{ID: f.ID, Kind: frameResponse, Body: body}}
		case *proto.LockRequest:
			return []frame{{ID: f.ID, Kind: frameError, Body: json.RawMessage(`{"code":"WRONG_STATE","message":"wallet already locked"}`)}}
		case *proto.UnlockRequest:
			// 故意回错响应类型，验证协议违例检测。
			body, err := proto.EncodeMessage(&proto.LockResponse{})
			require.NoError(t, err)
			return []frame{{ID: f.ID, Kind: frameResponse, Body: body}}
		default:
			return nil
		}
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Endpoint = "test://authority"
	cfg.RequestTimeout = 2 * time.Second
	cfg.Backoff = BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond, Jitter: 0}
	return cfg
}

func TestRequestReplyCorrelation(t *testing.T) {
	authority := &scriptedAuthority{}
	authority.handler = echoStateHandler(t)
	conn, err := Dial(testConfig(), WithDialer(authority.dialer()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := conn.Request(context.Background(), &proto.GetStateRequest{})
	require.NoError(t, err)
	state, ok := resp.(*proto.GetStateResponse)
	require.True(t, ok)
	require.Equal(t, proto.StatusReady, state.State.Status)
}

func TestAuthorityErrorPropagatesVerbatim(t *testing.T) {
	authority := &scriptedAuthority{}
	authority.handler = echoStateHandler(t)
	conn, err := Dial(testConfig(), WithDialer(authority.dialer()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Request(context.Background(), &proto.LockRequest{})
	require.Error(t, err)
	werr, ok := walleterr.FromError(err)
	require.True(t, ok)
	require.Equal(t, walleterr.CodeAuthority, werr.Code)
	require.Contains(t, werr.Message, "wallet already locked")
}

func TestMismatchedResponseIsProtocolViolation(t *testing.T) {
	authority := &scriptedAuthority{}
	authority.handler = echoStateHandler(t)
	conn, err := Dial(testConfig(), WithDialer(authority.dialer()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Request(context.Background(), &proto.UnlockRequest{Password: "pw"})
	require.Error(t, err)
	require.True(t, walleterr.IsProtocolViolation(err))
}

func TestNotificationsFanOutAndUnsubscribe(t *testing.T) {
	authority := &scriptedAuthority{}
	authority.handler = echoStateHandler(t)
	conn, err := Dial(testConfig(), WithDialer(authority.dialer()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var mu sync.Mutex
	var received []proto.Notification
	unsubscribe := conn.Subscribe(func(n proto.Notification) {
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
	})

	authority.push(t, &proto.ConfirmationExpired{ID: "abc123"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	expired, ok := received[0].(*proto.ConfirmationExpired)
	mu.Unlock()
	require.True(t, ok)
	require.Equal(t, "abc123", expired.ID)

	unsubscribe()
	authority.push(t, &proto.StateUpdated{})
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Len(t, received, 1)
	mu.Unlock()
}

func TestDisconnectFailsPendingAndReconnects(t *testing.T) {
	authority := &scriptedAuthority{closeAfter: 1}
	authority.handler = echoStateHandler(t)
	conn, err := Dial(testConfig(), WithDialer(authority.dialer()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Request(context.Background(), &proto.GetStateRequest{})
	require.Error(t, err)
	require.True(t, walleterr.HasCode(err, walleterr.CodeChannelClosed))

	// 重连后恢复服务。
	authority.mu.Lock()
	authority.closeAfter = 0
	authority.mu.Unlock()
	require.Eventually(t, func() bool {
		return authority.dialCount() >= 2
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		resp, err := conn.Request(context.Background(), &proto.GetStateRequest{})
		return err == nil && resp != nil
	}, time.Second, 10*time.Millisecond)
}

func TestCloseFailsInflightRequests(t *testing.T) {
	authority := &scriptedAuthority{}
	// 永不回复。
	authority.handler = func(frame) []frame { return nil }
	conn, err := Dial(testConfig(), WithDialer(authority.dialer()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Request(context.Background(), &proto.GetStateRequest{})
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("request did not fail after close")
	}
}

type closeSignalConn struct {
	net.Conn
	closed chan struct{}
	once   sync.Once
}

func (c *closeSignalConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

func TestBlockingDialClosesLateConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, server := net.Pipe()
	defer server.Close()
	late := &closeSignalConn{Conn: client, closed: make(chan struct{})}

	release := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		_, err := dialBlocking(ctx, func() (net.Conn, error) {
			<-release
			return late, nil
		})
		errs <- err
	}()

	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	// 取消后才建立的连接必须被回收。
	close(release)
	select {
	case <-late.closed:
	case <-time.After(time.Second):
		t.Fatal("late connection never closed")
	}
}
