package solana

// LogEvent is a logsNotification delivered to the event processor.
// Events are emitted strictly in arrival order.
type LogEvent struct {
	// Address is the watched address whose subscription produced the event.
	Address   string
	Signature string
	Logs      []string
	Err       interface{}
}

// ClientState is the connection state of the subscription client.
type ClientState int32

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateSubscribing
	StateSteady
	StateReconnecting
	StateTerminated
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateSteady:
		return "steady"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
