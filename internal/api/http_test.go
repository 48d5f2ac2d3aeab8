package frontapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/LeastAuthority/thanos-wallet/internal/front/confirm"
	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
	"github.com/LeastAuthority/thanos-wallet/internal/front/session"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

type stubChannel struct {
	handler func(proto.Request) (proto.Response, error)
}

func (s *stubChannel) Request(ctx context.Context, req proto.Request) (proto.Response, error) {
	return s.handler(req)
}

func (s *stubChannel) Subscribe(handler func(proto.Notification)) func() {
	return func() {}
}

func newTestHandler(t *testing.T, handler func(proto.Request) (proto.Response, error)) (*http.ServeMux, *session.Session) {
	t.Helper()
	sess := session.New(&stubChannel{handler: handler}, session.Config{
		Confirm: confirm.Config{Metrics: confirm.NewMetrics(prometheus.NewRegistry())},
	})
	t.Cleanup(sess.Close)
	mux := http.NewServeMux()
	NewHTTPHandler(sess).Register(mux)
	return mux, sess
}

func TestHandleState(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		require.IsType(t, &proto.GetStateRequest{}, req)
		return &proto.GetStateResponse{State: proto.WalletState{Status: proto.StatusReady}}, nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state proto.WalletState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, proto.StatusReady, state.Status)
}

func TestHandlePayloadMissingID(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		t.Fatal("request must not reach the channel")
		return nil, nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/confirm/payload", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, string(walleterr.CodeInvalidArgument), resp.Code)
}

func TestHandlePermissionDecline(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		perm, ok := req.(*proto.DAppPermConfirmationRequest)
		require.True(t, ok)
		require.False(t, perm.Confirmed)
		require.Equal(t, "ext-7", perm.ID)
		return &proto.DAppPermConfirmationResponse{}, nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/confirm/permission",
		strings.NewReader(`{"id":"ext-7","confirmed":false}`)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleOperationDeclinedByAuthority(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		return nil, walleterr.New(walleterr.CodeDeclined, "declined by user")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/confirm/operation",
		strings.NewReader(`{"id":"ext-8","confirmed":true}`)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, string(walleterr.CodeDeclined), resp.Code)
}

func TestHandleSign(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		sign, ok := req.(*proto.SignRequest)
		require.True(t, ok)
		require.Equal(t, "tz1abc", sign.SourcePKH)
		require.Equal(t, "05dead", sign.Bytes)
		require.Equal(t, "03", sign.Watermark)
		return &proto.SignResponse{Result: proto.SignatureResult{Sig: "sigXYZ"}}, nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sign",
		strings.NewReader(`{"sourcePkh":"tz1abc","payload":"0x05dead","watermark":"03"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp signResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "sigXYZ", resp.Sig)
}

func TestHandleSignBadEncoding(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		t.Fatal("request must not reach the channel")
		return nil, nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sign",
		strings.NewReader(`{"sourcePkh":"tz1abc","payload":"zzzz","encoding":"hex"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePendingIdle(t *testing.T) {
	mux, _ := newTestHandler(t, func(req proto.Request) (proto.Response, error) {
		return nil, walleterr.New(walleterr.CodeAuthority, "unexpected request")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/confirm/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pendingResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "IDLE", resp.State)
	require.Empty(t, resp.ID)
}
