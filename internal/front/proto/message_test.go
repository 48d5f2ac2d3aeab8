package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeMessageUnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"bogus_request"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown message type")
}

func TestEncodeDecodeNotification(t *testing.T) {
	note := &ConfirmationRequested{
		ID: "abc123",
		Payload: ConfirmationPayloadBox{Payload: &ConnectPayload{
			Origin:  "https://example.com",
			AppMeta: AppMetadata{Name: "Example dApp"},
		}},
	}
	data, err := EncodeMessage(note)
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	got, ok := decoded.(*ConfirmationRequested)
	require.True(t, ok)
	require.Equal(t, "abc123", got.ID)
	connect, ok := got.Payload.Payload.(*ConnectPayload)
	require.True(t, ok)
	require.Equal(t, "https://example.com", connect.Origin)
}

func TestEveryRequestHasMatchingResponseFactory(t *testing.T) {
	for msgType, factory := range factories {
		req, ok := factory().(Request)
		if !ok {
			continue
		}
		require.Equal(t, msgType, req.MessageType())
		respFactory, ok := factories[req.ResponseType()]
		require.Truef(t, ok, "request %s has no response factory", msgType)
		_, ok = respFactory().(Response)
		require.Truef(t, ok, "%s does not decode to a Response", req.ResponseType())
	}
}

func TestPayloadBoxRejectsUnknownKind(t *testing.T) {
	var box ConfirmationPayloadBox
	err := json.Unmarshal([]byte(`{"kind":"mystery","content":{}}`), &box)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown confirmation payload kind")
}

func TestPayloadBoxOperationsRoundTrip(t *testing.T) {
	box := ConfirmationPayloadBox{Payload: &OperationsPayload{
		SourcePKH:     "tz1abc",
		NetworkRPC:    "https://rpc.example.org",
		RawOperations: []json.RawMessage{json.RawMessage(`{"kind":"transaction"}`)},
	}}
	data, err := json.Marshal(box)
	require.NoError(t, err)

	var decoded ConfirmationPayloadBox
	require.NoError(t, json.Unmarshal(data, &decoded))
	ops, ok := decoded.Payload.(*OperationsPayload)
	require.True(t, ok)
	require.Equal(t, "tz1abc", ops.SourcePKH)
	require.Len(t, ops.RawOperations, 1)
}

func TestDecodeMessageEmptyPayload(t *testing.T) {
	decoded, err := DecodeMessage([]byte(`{"type":"lock_request"}`))
	require.NoError(t, err)
	_, ok := decoded.(*LockRequest)
	require.True(t, ok)
}
