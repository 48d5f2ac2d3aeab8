package confirm

// State 表示确认状态机当前所处阶段。
type State string

const (
	// StateIdle 表示没有被跟踪的关联 id。
	StateIdle State = "IDLE"
	// StateTracking 表示请求已发出，authority 尚未推送确认提示。
	StateTracking State = "TRACKING"
	// StateAwaitingDecision 表示确认内容已到达，等待用户决定。
	StateAwaitingDecision State = "AWAITING_DECISION"
)

func (s State) String() string {
	switch s {
	case StateIdle, StateTracking, StateAwaitingDecision:
		return string(s)
	default:
		return string(StateIdle)
	}
}
