package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/LeastAuthority/thanos-wallet/internal/front/confirm"
	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// fakeChannel 是进程内通道替身：请求交给 handler，通知手动推送。
type fakeChannel struct {
	mu       sync.Mutex
	handler  func(proto.Request) (proto.Response, error)
	subs     map[int]func(proto.Notification)
	nextSub  int
	requests []proto.Request
}

func newFakeChannel(handler func(proto.Request) (proto.Response, error)) *fakeChannel {
	return &fakeChannel{handler: handler, subs: make(map[int]func(proto.Notification))}
}

func (f *fakeChannel) Request(ctx context.Context, req proto.Request) (proto.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	h := f.handler
	f.mu.Unlock()
	return h(req)
}

func (f *fakeChannel) Subscribe(handler func(proto.Notification)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeChannel) push(n proto.Notification) {
	f.mu.Lock()
	handlers := make([]func(proto.Notification), 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(n)
	}
}

func (f *fakeChannel) requestCount(t proto.MessageType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if req.MessageType() == t {
			n++
		}
	}
	return n
}

func testConfig() Config {
	return Config{
		DecisionRate:    1000,
		DecisionBurst:   1000,
		MinFailureDelay: time.Millisecond,
		Confirm:         confirm.Config{Metrics: confirm.NewMetrics(prometheus.NewRegistry())},
	}
}

func TestPlainRoundTrip(t *testing.T) {
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		switch req.(type) {
		case *proto.UnlockRequest:
			return &proto.UnlockResponse{}, nil
		default:
			return nil, walleterr.New(walleterr.CodeAuthority, "unexpected request")
		}
	})
	s := New(ch, testConfig())
	defer s.Close()

	require.NoError(t, s.Unlock(context.Background(), "hunter2"))
}

func TestRoundTripTypeMismatch(t *testing.T) {
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		return &proto.LockResponse{}, nil
	})
	s := New(ch, testConfig())
	defer s.Close()

	err := s.Unlock(context.Background(), "pw")
	require.Error(t, err)
	require.True(t, walleterr.IsProtocolViolation(err))
}

func TestStateCacheHitAndRevalidate(t *testing.T) {
	state := proto.WalletState{Status: proto.StatusLocked}
	ch := newFakeChannel(nil)
	ch.handler = func(req proto.Request) (proto.Response, error) {
		require.IsType(t, &proto.GetStateRequest{}, req)
		return &proto.GetStateResponse{State: state}, nil
	}
	s := New(ch, testConfig())
	defer s.Close()

	got, err := s.WalletState(context.Background())
	require.NoError(t, err)
	require.Equal(t, proto.StatusLocked, got.Status)

	// 缓存命中，不产生第二次往返。
	_, err = s.WalletState(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, ch.requestCount(proto.TypeGetStateRequest))

	// 状态更新通知触发后台重拉。
	state.Status = proto.StatusReady
	ch.push(&proto.StateUpdated{})
	require.Eventually(t, func() bool {
		snap, ok := s.CachedState()
		return ok && snap.Status == proto.StatusReady
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, ch.requestCount(proto.TypeGetStateRequest))
}

func TestStaleFetchDoesNotRegressCache(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	ch := newFakeChannel(nil)
	ch.handler = func(req proto.Request) (proto.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// 第一次拉取被拖到状态更新之后才带着旧状态返回。
			<-gate
			return &proto.GetStateResponse{State: proto.WalletState{Status: proto.StatusLocked}}, nil
		}
		return &proto.GetStateResponse{State: proto.WalletState{Status: proto.StatusReady}}, nil
	}
	s := New(ch, testConfig())
	defer s.Close()

	type fetchResult struct {
		state proto.WalletState
		err   error
	}
	results := make(chan fetchResult, 1)
	go func() {
		st, err := s.FetchState(context.Background())
		results <- fetchResult{st, err}
	}()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	ch.push(&proto.StateUpdated{})
	require.Eventually(t, func() bool {
		snap, ok := s.CachedState()
		return ok && snap.Status == proto.StatusReady
	}, time.Second, 5*time.Millisecond)

	close(gate)
	res := <-results
	require.NoError(t, res.err)
	// 显式调用方仍拿到它请求的快照。
	require.Equal(t, proto.StatusLocked, res.state.Status)

	// 迟到的旧快照不回填缓存，也不把缓存标脏。
	snap, ok := s.CachedState()
	require.True(t, ok)
	require.Equal(t, proto.StatusReady, snap.Status)
	got, err := s.WalletState(context.Background())
	require.NoError(t, err)
	require.Equal(t, proto.StatusReady, got.Status)
	require.Equal(t, 2, ch.requestCount(proto.TypeGetStateRequest))
}

func TestSendOperationsCarriesGeneratedID(t *testing.T) {
	var seenID string
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		ops, ok := req.(*proto.OperationsRequest)
		if !ok {
			return nil, walleterr.New(walleterr.CodeAuthority, "unexpected request")
		}
		seenID = ops.ID
		return &proto.OperationsResponse{OpHash: "oo123"}, nil
	})
	s := New(ch, testConfig())
	defer s.Close()

	resp, err := s.SendOperations(context.Background(), "tz1abc", "https://rpc.example",
		[]json.RawMessage{json.RawMessage(`{"kind":"transaction"}`)})
	require.NoError(t, err)
	require.Equal(t, "oo123", resp.OpHash)
	require.NotEmpty(t, seenID)
	// 往返结束后槽位必须释放。
	require.Empty(t, s.watcher.TrackedID())
}

func TestGatedCallFailsOnExpiry(t *testing.T) {
	ids := make(chan string, 1)
	block := make(chan struct{})
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		sign := req.(*proto.SignRequest)
		ids <- sign.ID
		<-block
		return nil, walleterr.New(walleterr.CodeChannelClosed, "torn down")
	})
	s := New(ch, testConfig())
	defer s.Close()
	defer close(block)

	errs := make(chan error, 1)
	go func() {
		_, err := s.Sign(context.Background(), "tz1abc", "05deadbeef", "03")
		errs <- err
	}()

	id := <-ids
	ch.push(&proto.ConfirmationExpired{ID: id})

	select {
	case err := <-errs:
		require.True(t, walleterr.IsExpired(err))
	case <-time.After(time.Second):
		t.Fatal("sign call not released by expiry")
	}
}

func TestGatedCallSurfacesDecline(t *testing.T) {
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		return nil, walleterr.New(walleterr.CodeDeclined, "declined by user")
	})
	s := New(ch, testConfig())
	defer s.Close()

	_, err := s.Sign(context.Background(), "tz1abc", "05deadbeef", "")
	require.True(t, walleterr.IsDeclined(err))
	require.Empty(t, s.watcher.TrackedID())
}

func TestConfirmDAppPermissionResolvesPublicKey(t *testing.T) {
	var mu sync.Mutex
	var order []proto.MessageType
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		mu.Lock()
		order = append(order, req.MessageType())
		mu.Unlock()
		switch r := req.(type) {
		case *proto.RevealPublicKeyRequest:
			require.Equal(t, "tz1abc", r.PublicKeyHash)
			return &proto.RevealPublicKeyResponse{PublicKey: "edpkFull"}, nil
		case *proto.DAppPermConfirmationRequest:
			require.True(t, r.Confirmed)
			require.Equal(t, "edpkFull", r.PublicKey)
			return &proto.DAppPermConfirmationResponse{}, nil
		default:
			return nil, walleterr.New(walleterr.CodeAuthority, "unexpected request")
		}
	})
	s := New(ch, testConfig())
	defer s.Close()

	require.NoError(t, s.ConfirmDAppPermission(context.Background(), "ext-1", true, "tz1abc"))
	require.Equal(t, []proto.MessageType{
		proto.TypeRevealPublicKeyRequest,
		proto.TypeDAppPermConfirmationRequest,
	}, order)
}

func TestConfirmDAppPermissionDeclineSkipsKeyLookup(t *testing.T) {
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		require.IsType(t, &proto.DAppPermConfirmationRequest{}, req)
		return &proto.DAppPermConfirmationResponse{}, nil
	})
	s := New(ch, testConfig())
	defer s.Close()

	require.NoError(t, s.ConfirmDAppPermission(context.Background(), "ext-1", false, ""))
	require.Zero(t, ch.requestCount(proto.TypeRevealPublicKeyRequest))
}

func TestDecisionFailureHeld(t *testing.T) {
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		return nil, walleterr.New(walleterr.CodeAuthority, "bad password")
	})
	cfg := testConfig()
	cfg.MinFailureDelay = 50 * time.Millisecond
	s := New(ch, cfg)
	defer s.Close()

	start := time.Now()
	err := s.ConfirmOperation(context.Background(), "op-1", true)
	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestValidationErrors(t *testing.T) {
	ch := newFakeChannel(func(req proto.Request) (proto.Response, error) {
		t.Fatal("invalid arguments must not reach the channel")
		return nil, nil
	})
	s := New(ch, testConfig())
	defer s.Close()

	ctx := context.Background()
	_, err := s.GetDAppPayload(ctx, "")
	require.True(t, walleterr.HasCode(err, walleterr.CodeInvalidArgument))
	_, err = s.SendOperations(ctx, "", "", nil)
	require.True(t, walleterr.HasCode(err, walleterr.CodeInvalidArgument))
	_, err = s.Sign(ctx, "tz1abc", "", "")
	require.True(t, walleterr.HasCode(err, walleterr.CodeInvalidArgument))
	require.Error(t, s.ConfirmDAppPermission(ctx, "ext", true, ""))
}
