// Package frontapi 实现前台的本地 HTTP/JSON 接口，供扩展 UI 消费。
package frontapi

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/LeastAuthority/thanos-wallet/internal/front/adapter"
	"github.com/LeastAuthority/thanos-wallet/internal/front/session"
	"github.com/LeastAuthority/thanos-wallet/pkg/validator"
	"github.com/LeastAuthority/thanos-wallet/pkg/walleterr"
)

// HTTPHandler 把会话 facade 暴露为本地 HTTP 接口。
type HTTPHandler struct {
	sess *session.Session
}

// NewHTTPHandler 构造 HTTP handler。
func NewHTTPHandler(sess *session.Session) *HTTPHandler {
	if sess == nil {
		panic("wallet session is required")
	}
	return &HTTPHandler{sess: sess}
}

// Register 将 handler 注册到 mux。
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/state", h.handleState)
	mux.HandleFunc("/confirm/pending", h.handlePending)
	mux.HandleFunc("/confirm/payload", h.handlePayload)
	mux.HandleFunc("/confirm/permission", h.handlePermission)
	mux.HandleFunc("/confirm/operation", h.handleOperation)
	mux.HandleFunc("/sign", h.handleSign)
}

type decisionBody struct {
	ID            string `json:"id"`
	Confirmed     bool   `json:"confirmed"`
	PublicKeyHash string `json:"pkh,omitempty"`
}

type signRequestBody struct {
	SourcePKH string `json:"sourcePkh"`
	Payload   string `json:"payload"`
	Encoding  string `json:"encoding,omitempty"`
	Watermark string `json:"watermark,omitempty"`
}

type signResponseBody struct {
	Bytes       string `json:"bytes"`
	Sig         string `json:"sig"`
	PrefixedSig string `json:"prefixedSig,omitempty"`
	SignedBytes string `json:"sbytes,omitempty"`
}

type pendingResponseBody struct {
	State   string `json:"state"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *HTTPHandler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "GET required"))
		return
	}
	state, err := h.sess.WalletState(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

func (h *HTTPHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "GET required"))
		return
	}
	body := pendingResponseBody{State: string(h.sess.ConfirmState())}
	if pending, ok := h.sess.PendingConfirmation(); ok {
		body.ID = pending.ID
		body.Payload = pending.Payload
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *HTTPHandler) handlePayload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "GET required"))
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "id query parameter is required"))
		return
	}
	payload, err := h.sess.GetDAppPayload(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *HTTPHandler) handlePermission(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeDecision(w, r)
	if !ok {
		return
	}
	if err := h.sess.ConfirmDAppPermission(r.Context(), body.ID, body.Confirmed, body.PublicKeyHash); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct{}{})
}

func (h *HTTPHandler) handleOperation(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeDecision(w, r)
	if !ok {
		return
	}
	if err := h.sess.ConfirmDAppOperation(r.Context(), body.ID, body.Confirmed); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct{}{})
}

func (h *HTTPHandler) handleSign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "POST required"))
		return
	}
	var body signRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "invalid JSON body"))
		return
	}
	if body.SourcePKH == "" {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "sourcePkh is required"))
		return
	}
	encoding, err := validator.NormalizeEncoding(body.Encoding)
	if err != nil {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, err.Error()))
		return
	}
	payload, err := validator.DecodePayload(body.Payload, encoding)
	if err != nil {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, err.Error()))
		return
	}
	watermark, err := decodeWatermark(body.Watermark)
	if err != nil {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, err.Error()))
		return
	}
	signer := adapter.NewSigner(h.sess, body.SourcePKH)
	result, err := signer.Sign(r.Context(), payload, watermark)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signResponseBody{
		Bytes:       result.Bytes,
		Sig:         result.Sig,
		PrefixedSig: result.PrefixedSig,
		SignedBytes: result.SignedBytes,
	})
}

func (h *HTTPHandler) decodeDecision(w http.ResponseWriter, r *http.Request) (decisionBody, bool) {
	if r.Method != http.MethodPost {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "POST required"))
		return decisionBody{}, false
	}
	var body decisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "invalid JSON body"))
		return decisionBody{}, false
	}
	if body.ID == "" {
		h.writeError(w, walleterr.New(walleterr.CodeInvalidArgument, "id is required"))
		return decisionBody{}, false
	}
	return body, true
}

func decodeWatermark(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return hex.DecodeString(raw)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	walletErr, ok := walleterr.FromError(err)
	if !ok {
		walletErr = walleterr.New(walleterr.CodeAuthority, "internal error")
	}
	status := walleterr.HTTPStatus(walletErr.Code)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, status, errorResponse{
		Code:    string(walletErr.Code),
		Message: walletErr.Message,
	})
}
