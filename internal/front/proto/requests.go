package proto

import "encoding/json"

// GetStateRequest 拉取全量钱包状态快照。
type GetStateRequest struct{}

func (*GetStateRequest) MessageType() MessageType  { return TypeGetStateRequest }
func (*GetStateRequest) ResponseType() MessageType { return TypeGetStateResponse }

// GetStateResponse 携带当前钱包状态。
type GetStateResponse struct {
	State WalletState `json:"state"`
}

func (*GetStateResponse) MessageType() MessageType { return TypeGetStateResponse }
func (*GetStateResponse) response()                {}

// NewWalletRequest 以口令（和可选助记词）注册新钱包。
type NewWalletRequest struct {
	Password string `json:"password"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

func (*NewWalletRequest) MessageType() MessageType  { return TypeNewWalletRequest }
func (*NewWalletRequest) ResponseType() MessageType { return TypeNewWalletResponse }

// NewWalletResponse 确认钱包已创建。
type NewWalletResponse struct{}

func (*NewWalletResponse) MessageType() MessageType { return TypeNewWalletResponse }
func (*NewWalletResponse) response()                {}

// UnlockRequest 用口令解锁钱包。
type UnlockRequest struct {
	Password string `json:"password"`
}

func (*UnlockRequest) MessageType() MessageType  { return TypeUnlockRequest }
func (*UnlockRequest) ResponseType() MessageType { return TypeUnlockResponse }

// UnlockResponse 确认解锁完成。
type UnlockResponse struct{}

func (*UnlockResponse) MessageType() MessageType { return TypeUnlockResponse }
func (*UnlockResponse) response()                {}

// LockRequest 锁定钱包。
type LockRequest struct{}

func (*LockRequest) MessageType() MessageType  { return TypeLockRequest }
func (*LockRequest) ResponseType() MessageType { return TypeLockResponse }

// LockResponse 确认锁定完成。
type LockResponse struct{}

func (*LockResponse) MessageType() MessageType { return TypeLockResponse }
func (*LockResponse) response()                {}

// CreateAccountRequest 从钱包种子派生一个新账户。
type CreateAccountRequest struct {
	Name string `json:"name,omitempty"`
}

func (*CreateAccountRequest) MessageType() MessageType  { return TypeCreateAccountRequest }
func (*CreateAccountRequest) ResponseType() MessageType { return TypeCreateAccountResponse }

// CreateAccountResponse 确认账户已创建。
type CreateAccountResponse struct{}

func (*CreateAccountResponse) MessageType() MessageType { return TypeCreateAccountResponse }
func (*CreateAccountResponse) response()                {}

// RevealPrivateKeyRequest 读取敏感信息：账户私钥。
type RevealPrivateKeyRequest struct {
	PublicKeyHash string `json:"pkh"`
	Password      string `json:"password"`
}

func (*RevealPrivateKeyRequest) MessageType() MessageType  { return TypeRevealPrivateKeyRequest }
func (*RevealPrivateKeyRequest) ResponseType() MessageType { return TypeRevealPrivateKeyResponse }

// RevealPrivateKeyResponse 携带明文私钥，facade 不做任何缓存。
type RevealPrivateKeyResponse struct {
	PrivateKey string `json:"privateKey"`
}

func (*RevealPrivateKeyResponse) MessageType() MessageType { return TypeRevealPrivateKeyResponse }
func (*RevealPrivateKeyResponse) response()                {}

// RevealMnemonicRequest 读取敏感信息：钱包助记词。
type RevealMnemonicRequest struct {
	Password string `json:"password"`
}

func (*RevealMnemonicRequest) MessageType() MessageType  { return TypeRevealMnemonicRequest }
func (*RevealMnemonicRequest) ResponseType() MessageType { return TypeRevealMnemonicResponse }

// RevealMnemonicResponse 携带明文助记词。
type RevealMnemonicResponse struct {
	Mnemonic string `json:"mnemonic"`
}

func (*RevealMnemonicResponse) MessageType() MessageType { return TypeRevealMnemonicResponse }
func (*RevealMnemonicResponse) response()                {}

// RevealPublicKeyRequest 查询账户公钥，公钥不属于敏感操作。
type RevealPublicKeyRequest struct {
	PublicKeyHash string `json:"pkh"`
}

func (*RevealPublicKeyRequest) MessageType() MessageType  { return TypeRevealPublicKeyRequest }
func (*RevealPublicKeyRequest) ResponseType() MessageType { return TypeRevealPublicKeyResponse }

// RevealPublicKeyResponse 携带账户公钥。
type RevealPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

func (*RevealPublicKeyResponse) MessageType() MessageType { return TypeRevealPublicKeyResponse }
func (*RevealPublicKeyResponse) response()                {}

// RemoveAccountRequest 删除账户，需要口令二次确认。
type RemoveAccountRequest struct {
	PublicKeyHash string `json:"pkh"`
	Password      string `json:"password"`
}

func (*RemoveAccountRequest) MessageType() MessageType  { return TypeRemoveAccountRequest }
func (*RemoveAccountRequest) ResponseType() MessageType { return TypeRemoveAccountResponse }

// RemoveAccountResponse 确认账户已删除。
type RemoveAccountResponse struct{}

func (*RemoveAccountResponse) MessageType() MessageType { return TypeRemoveAccountResponse }
func (*RemoveAccountResponse) response()                {}

// EditAccountRequest 修改账户显示名。
type EditAccountRequest struct {
	PublicKeyHash string `json:"pkh"`
	Name          string `json:"name"`
}

func (*EditAccountRequest) MessageType() MessageType  { return TypeEditAccountRequest }
func (*EditAccountRequest) ResponseType() MessageType { return TypeEditAccountResponse }

// EditAccountResponse 确认账户已更新。
type EditAccountResponse struct{}

func (*EditAccountResponse) MessageType() MessageType { return TypeEditAccountResponse }
func (*EditAccountResponse) response()                {}

// ImportAccountRequest 导入裸私钥账户。
type ImportAccountRequest struct {
	PrivateKey string `json:"privateKey"`
	// EncPassword 用于解密受口令保护的私钥。
	EncPassword string `json:"encPassword,omitempty"`
}

func (*ImportAccountRequest) MessageType() MessageType  { return TypeImportAccountRequest }
func (*ImportAccountRequest) ResponseType() MessageType { return TypeImportAccountResponse }

// ImportAccountResponse 确认导入完成。
type ImportAccountResponse struct{}

func (*ImportAccountResponse) MessageType() MessageType { return TypeImportAccountResponse }
func (*ImportAccountResponse) response()                {}

// ImportMnemonicAccountRequest 由助记词派生并导入账户。
type ImportMnemonicAccountRequest struct {
	Mnemonic       string `json:"mnemonic"`
	Password       string `json:"password,omitempty"`
	DerivationPath string `json:"derivationPath,omitempty"`
}

func (*ImportMnemonicAccountRequest) MessageType() MessageType {
	return TypeImportMnemonicAccountRequest
}
func (*ImportMnemonicAccountRequest) ResponseType() MessageType {
	return TypeImportMnemonicAccountResponse
}

// ImportMnemonicAccountResponse 确认导入完成。
type ImportMnemonicAccountResponse struct{}

func (*ImportMnemonicAccountResponse) MessageType() MessageType {
	return TypeImportMnemonicAccountResponse
}
func (*ImportMnemonicAccountResponse) response() {}

// ImportFundraiserAccountRequest 导入 fundraiser 账户。
type ImportFundraiserAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Mnemonic string `json:"mnemonic"`
}

func (*ImportFundraiserAccountRequest) MessageType() MessageType {
	return TypeImportFundraiserAccountRequest
}
func (*ImportFundraiserAccountRequest) ResponseType() MessageType {
	return TypeImportFundraiserAccountResponse
}

// ImportFundraiserAccountResponse 确认导入完成。
type ImportFundraiserAccountResponse struct{}

func (*ImportFundraiserAccountResponse) MessageType() MessageType {
	return TypeImportFundraiserAccountResponse
}
func (*ImportFundraiserAccountResponse) response() {}

// UpdateSettingsRequest 应用部分设置更新，未携带的字段保持不变。
type UpdateSettingsRequest struct {
	Settings SettingsPatch `json:"settings"`
}

func (*UpdateSettingsRequest) MessageType() MessageType  { return TypeUpdateSettingsRequest }
func (*UpdateSettingsRequest) ResponseType() MessageType { return TypeUpdateSettingsResponse }

// UpdateSettingsResponse 确认设置已更新。
type UpdateSettingsResponse struct{}

func (*UpdateSettingsResponse) MessageType() MessageType { return TypeUpdateSettingsResponse }
func (*UpdateSettingsResponse) response()                {}

// ConfirmationRequest 提交本地会话发起操作的用户决定。
type ConfirmationRequest struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
}

func (*ConfirmationRequest) MessageType() MessageType  { return TypeConfirmationRequest }
func (*ConfirmationRequest) ResponseType() MessageType { return TypeConfirmationResponse }

// ConfirmationResponse 确认决定已受理。
type ConfirmationResponse struct{}

func (*ConfirmationResponse) MessageType() MessageType { return TypeConfirmationResponse }
func (*ConfirmationResponse) response()                {}

// DAppGetPayloadRequest 按外部关联 id 拉取待确认的 dApp 请求描述。
type DAppGetPayloadRequest struct {
	ID string `json:"id"`
}

func (*DAppGetPayloadRequest) MessageType() MessageType  { return TypeDAppGetPayloadRequest }
func (*DAppGetPayloadRequest) ResponseType() MessageType { return TypeDAppGetPayloadResponse }

// DAppGetPayloadResponse 携带待确认内容。
type DAppGetPayloadResponse struct {
	Payload ConfirmationPayloadBox `json:"payload"`
}

func (*DAppGetPayloadResponse) MessageType() MessageType { return TypeDAppGetPayloadResponse }
func (*DAppGetPayloadResponse) response()                {}

// DAppPermConfirmationRequest 提交 dApp 连接授权决定。
// 批准时 authority 需要完整公钥而不仅是哈希，由 facade 先行解析。
type DAppPermConfirmationRequest struct {
	ID            string `json:"id"`
	Confirmed     bool   `json:"confirmed"`
	PublicKeyHash string `json:"pkh,omitempty"`
	PublicKey     string `json:"publicKey,omitempty"`
}

func (*DAppPermConfirmationRequest) MessageType() MessageType {
	return TypeDAppPermConfirmationRequest
}
func (*DAppPermConfirmationRequest) ResponseType() MessageType {
	return TypeDAppPermConfirmationResponse
}

// DAppPermConfirmationResponse 确认授权决定已受理。
type DAppPermConfirmationResponse struct{}

func (*DAppPermConfirmationResponse) MessageType() MessageType {
	return TypeDAppPermConfirmationResponse
}
func (*DAppPermConfirmationResponse) response() {}

// DAppOpsConfirmationRequest 提交 dApp 操作批次的确认决定。
type DAppOpsConfirmationRequest struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
}

func (*DAppOpsConfirmationRequest) MessageType() MessageType {
	return TypeDAppOpsConfirmationRequest
}
func (*DAppOpsConfirmationRequest) ResponseType() MessageType {
	return TypeDAppOpsConfirmationResponse
}

// DAppOpsConfirmationResponse 确认操作决定已受理。
type DAppOpsConfirmationResponse struct{}

func (*DAppOpsConfirmationResponse) MessageType() MessageType {
	return TypeDAppOpsConfirmationResponse
}
func (*DAppOpsConfirmationResponse) response() {}

// OperationsRequest 发送带确认门控的操作批次，ID 为前台生成的关联令牌。
type OperationsRequest struct {
	ID            string            `json:"id"`
	SourcePKH     string            `json:"sourcePkh"`
	NetworkRPC    string            `json:"networkRpc"`
	RawOperations []json.RawMessage `json:"opParams"`
}

func (*OperationsRequest) MessageType() MessageType  { return TypeOperationsRequest }
func (*OperationsRequest) ResponseType() MessageType { return TypeOperationsResponse }

// OperationsResponse 携带上链结果，authority 仅在用户批准后才回复。
type OperationsResponse struct {
	OpHash    string            `json:"opHash"`
	OpResults []json.RawMessage `json:"opResults,omitempty"`
}

func (*OperationsResponse) MessageType() MessageType { return TypeOperationsResponse }
func (*OperationsResponse) response()                {}

// SignRequest 请求签名任意字节串，同样受确认门控。
type SignRequest struct {
	ID        string `json:"id"`
	SourcePKH string `json:"sourcePkh"`
	Bytes     string `json:"bytes"`
	// Watermark 为可选的 hex 前缀，空串表示不加水印。
	Watermark string `json:"watermark,omitempty"`
}

func (*SignRequest) MessageType() MessageType  { return TypeSignRequest }
func (*SignRequest) ResponseType() MessageType { return TypeSignResponse }

// SignResponse 携带签名结果。
type SignResponse struct {
	Result SignatureResult `json:"result"`
}

func (*SignResponse) MessageType() MessageType { return TypeSignResponse }
func (*SignResponse) response()                {}

// SignatureResult 是签名操作的完整产物。
type SignatureResult struct {
	Bytes       string `json:"bytes"`
	Sig         string `json:"sig"`
	PrefixedSig string `json:"prefixedSig,omitempty"`
	SignedBytes string `json:"sbytes,omitempty"`
}
