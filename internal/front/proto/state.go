package proto

// WalletStatus 表示钱包的顶层状态。
type WalletStatus string

const (
	// StatusIdle 表示尚未注册钱包。
	StatusIdle WalletStatus = "idle"
	// StatusLocked 表示钱包存在但尚未解锁。
	StatusLocked WalletStatus = "locked"
	// StatusReady 表示钱包已解锁可用。
	StatusReady WalletStatus = "ready"
)

// AccountType 区分账户来源。
type AccountType string

const (
	AccountTypeGenerated  AccountType = "generated"
	AccountTypeImported   AccountType = "imported"
	AccountTypeFundraiser AccountType = "fundraiser"
)

// Account 是 authority 持有账户的只读投影，仅随状态更新整体替换。
type Account struct {
	PublicKeyHash  string      `json:"pkh"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	DerivationPath string      `json:"derivationPath,omitempty"`
}

// Network 描述一个可用的链网络端点。
type Network struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RPCBaseURL  string `json:"rpcBaseUrl"`
	Description string `json:"description,omitempty"`
}

// Settings 是钱包级用户设置。
type Settings struct {
	Locale         string `json:"locale,omitempty"`
	FiatCurrency   string `json:"fiatCurrency,omitempty"`
	ConfirmWindow  int    `json:"confirmWindowSec,omitempty"`
	DAppsEnabled   bool   `json:"dappsEnabled"`
	DefaultNetwork string `json:"defaultNetwork,omitempty"`
}

// SettingsPatch 表示部分设置更新，nil 字段保持原值。
type SettingsPatch struct {
	Locale         *string `json:"locale,omitempty"`
	FiatCurrency   *string `json:"fiatCurrency,omitempty"`
	ConfirmWindow  *int    `json:"confirmWindowSec,omitempty"`
	DAppsEnabled   *bool   `json:"dappsEnabled,omitempty"`
	DefaultNetwork *string `json:"defaultNetwork,omitempty"`
}

// WalletState 是 authority 状态的整体快照，前台只读。
type WalletState struct {
	Status   WalletStatus `json:"status"`
	Networks []Network    `json:"networks"`
	Accounts []Account    `json:"accounts"`
	Settings Settings     `json:"settings"`
}
