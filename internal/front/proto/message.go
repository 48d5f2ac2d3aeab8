package proto

import (
	"encoding/json"
	"fmt"
)

// MessageType 是跨 channel 报文的判别值，请求与响应一一对应。
type MessageType string

const (
	TypeGetStateRequest  MessageType = "get_state_request"
	TypeGetStateResponse MessageType = "get_state_response"

	TypeNewWalletRequest  MessageType = "new_wallet_request"
	TypeNewWalletResponse MessageType = "new_wallet_response"

	TypeUnlockRequest  MessageType = "unlock_request"
	TypeUnlockResponse MessageType = "unlock_response"

	TypeLockRequest  MessageType = "lock_request"
	TypeLockResponse MessageType = "lock_response"

	TypeCreateAccountRequest  MessageType = "create_account_request"
	TypeCreateAccountResponse MessageType = "create_account_response"

	TypeRevealPrivateKeyRequest  MessageType = "reveal_private_key_request"
	TypeRevealPrivateKeyResponse MessageType = "reveal_private_key_response"

	TypeRevealMnemonicRequest  MessageType = "reveal_mnemonic_request"
	TypeRevealMnemonicResponse MessageType = "reveal_mnemonic_response"

	TypeRevealPublicKeyRequest  MessageType = "reveal_public_key_request"
	TypeRevealPublicKeyResponse MessageType = "reveal_public_key_response"

	TypeRemoveAccountRequest  MessageType = "remove_account_request"
	TypeRemoveAccountResponse MessageType = "remove_account_response"

	TypeEditAccountRequest  MessageType = "edit_account_request"
	TypeEditAccountResponse MessageType = "edit_account_response"

	TypeImportAccountRequest  MessageType = "import_account_request"
	TypeImportAccountResponse MessageType = "import_account_response"

	TypeImportMnemonicAccountRequest  MessageType = "import_mnemonic_account_request"
	TypeImportMnemonicAccountResponse MessageType = "import_mnemonic_account_response"

	TypeImportFundraiserAccountRequest  MessageType = "import_fundraiser_account_request"
	TypeImportFundraiserAccountResponse MessageType = "import_fundraiser_account_response"

	TypeUpdateSettingsRequest  MessageType = "update_settings_request"
	TypeUpdateSettingsResponse MessageType = "update_settings_response"

	TypeConfirmationRequest  MessageType = "confirmation_request"
	TypeConfirmationResponse MessageType = "confirmation_response"

	TypeDAppGetPayloadRequest  MessageType = "dapp_get_payload_request"
	TypeDAppGetPayloadResponse MessageType = "dapp_get_payload_response"

	TypeDAppPermConfirmationRequest  MessageType = "dapp_permission_confirmation_request"
	TypeDAppPermConfirmationResponse MessageType = "dapp_permission_confirmation_response"

	TypeDAppOpsConfirmationRequest  MessageType = "dapp_operations_confirmation_request"
	TypeDAppOpsConfirmationResponse MessageType = "dapp_operations_confirmation_response"

	TypeOperationsRequest  MessageType = "operations_request"
	TypeOperationsResponse MessageType = "operations_response"

	TypeSignRequest  MessageType = "sign_request"
	TypeSignResponse MessageType = "sign_response"

	TypeStateUpdatedNotification          MessageType = "state_updated"
	TypeConfirmationRequestedNotification MessageType = "confirmation_requested"
	TypeConfirmationExpiredNotification   MessageType = "confirmation_expired"
)

// Message 是所有跨 channel 报文的共同约束。
type Message interface {
	MessageType() MessageType
}

// Request 标记一次请求并声明其唯一匹配的响应类型。
type Request interface {
	Message
	ResponseType() MessageType
}

// Response 标记 authority 对某个请求的回复。
type Response interface {
	Message
	response()
}

// Notification 标记 authority 推送的带外通知。
type Notification interface {
	Message
	notification()
}

// wireMessage 是编解码中间层，payload 为具体报文的 JSON。
type wireMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// factory 按类型构造空报文实例用于解码。
var factories = map[MessageType]func() Message{
	TypeGetStateRequest:  func() Message { return &GetStateRequest{} },
	TypeGetStateResponse: func() Message { return &GetStateResponse{} },

	TypeNewWalletRequest:  func() Message { return &NewWalletRequest{} },
	TypeNewWalletResponse: func() Message { return &NewWalletResponse{} },

	TypeUnlockRequest:  func() Message { return &UnlockRequest{} },
	TypeUnlockResponse: func() Message { return &UnlockResponse{} },

	TypeLockRequest:  func() Message { return &LockRequest{} },
	TypeLockResponse: func() Message { return &LockResponse{} },

	TypeCreateAccountRequest:  func() Message { return &CreateAccountRequest{} },
	TypeCreateAccountResponse: func() Message { return &CreateAccountResponse{} },

	TypeRevealPrivateKeyRequest:  func() Message { return &RevealPrivateKeyRequest{} },
	TypeRevealPrivateKeyResponse: func() Message { return &RevealPrivateKeyResponse{} },

	TypeRevealMnemonicRequest:  func() Message { return &RevealMnemonicRequest{} },
	TypeRevealMnemonicResponse: func() Message { return &RevealMnemonicResponse{} },

	TypeRevealPublicKeyRequest:  func() Message { return &RevealPublicKeyRequest{} },
	TypeRevealPublicKeyResponse: func() Message { return &RevealPublicKeyResponse{} },

	TypeRemoveAccountRequest:  func() Message { return &RemoveAccountRequest{} },
	TypeRemoveAccountResponse: func() Message { return &RemoveAccountResponse{} },

	TypeEditAccountRequest:  func() Message { return &EditAccountRequest{} },
	TypeEditAccountResponse: func() Message { return &EditAccountResponse{} },

	TypeImportAccountRequest:  func() Message { return &ImportAccountRequest{} },
	TypeImportAccountResponse: func() Message { return &ImportAccountResponse{} },

	TypeImportMnemonicAccountRequest:  func() Message { return &ImportMnemonicAccountRequest{} },
	TypeImportMnemonicAccountResponse: func() Message { return &ImportMnemonicAccountResponse{} },

	TypeImportFundraiserAccountRequest:  func() Message { return &ImportFundraiserAccountRequest{} },
	TypeImportFundraiserAccountResponse: func() Message { return &ImportFundraiserAccountResponse{} },

	TypeUpdateSettingsRequest:  func() Message { return &UpdateSettingsRequest{} },
	TypeUpdateSettingsResponse: func() Message { return &UpdateSettingsResponse{} },

	TypeConfirmationRequest:  func() Message { return &ConfirmationRequest{} },
	TypeConfirmationResponse: func() Message { return &ConfirmationResponse{} },

	TypeDAppGetPayloadRequest:  func() Message { return &DAppGetPayloadRequest{} },
	TypeDAppGetPayloadResponse: func() Message { return &DAppGetPayloadResponse{} },

	TypeDAppPermConfirmationRequest:  func() Message { return &DAppPermConfirmationRequest{} },
	TypeDAppPermConfirmationResponse: func() Message { return &DAppPermConfirmationResponse{} },

	TypeDAppOpsConfirmationRequest:  func() Message { return &DAppOpsConfirmationRequest{} },
	TypeDAppOpsConfirmationResponse: func() Message { return &DAppOpsConfirmationResponse{} },

	TypeOperationsRequest:  func() Message { return &OperationsRequest{} },
	TypeOperationsResponse: func() Message { return &OperationsResponse{} },

	TypeSignRequest:  func() Message { return &SignRequest{} },
	TypeSignResponse: func() Message { return &SignResponse{} },

	TypeStateUpdatedNotification:          func() Message { return &StateUpdated{} },
	TypeConfirmationRequestedNotification: func() Message { return &ConfirmationRequested{} },
	TypeConfirmationExpiredNotification:   func() Message { return &ConfirmationExpired{} },
}

// EncodeMessage 将报文编码为 {type, payload} 包络。
func EncodeMessage(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil message")
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.MessageType(), err)
	}
	return json.Marshal(wireMessage{Type: m.MessageType(), Payload: payload})
}

// DecodeMessage 解析包络并按判别值还原具体报文，未知类型报错。
func DecodeMessage(data []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal message envelope: %w", err)
	}
	factory, ok := factories[wire.Type]
	if !ok {
		return nil, fmt.Errorf("unknown message type %q", wire.Type)
	}
	msg := factory()
	if len(wire.Payload) > 0 {
		if err := json.Unmarshal(wire.Payload, msg); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", wire.Type, err)
		}
	}
	return msg, nil
}
