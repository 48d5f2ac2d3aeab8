package proto

// StateUpdated 提示钱包状态已变化，前台应整体重新拉取。
type StateUpdated struct{}

func (*StateUpdated) MessageType() MessageType { return TypeStateUpdatedNotification }
func (*StateUpdated) notification()            {}

// ConfirmationRequested 表示 authority 已为指定关联 id 生成确认提示。
type ConfirmationRequested struct {
	ID      string                 `json:"id"`
	Payload ConfirmationPayloadBox `json:"payload"`
}

func (*ConfirmationRequested) MessageType() MessageType { return TypeConfirmationRequestedNotification }
func (*ConfirmationRequested) notification()            {}

// ConfirmationExpired 表示确认窗口已在 authority 侧超时关闭。
type ConfirmationExpired struct {
	ID string `json:"id"`
}

func (*ConfirmationExpired) MessageType() MessageType { return TypeConfirmationExpiredNotification }
func (*ConfirmationExpired) notification()            {}
