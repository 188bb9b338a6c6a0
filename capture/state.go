package capture

// State is the lifecycle state of the controller's recording session.
type State int

const (
	Idle State = iota
	AwaitingPermission
	Recording
	Stopped
	Reviewing
	Uploading
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	AwaitingPermission: "awaiting_permission",
	Recording:          "recording",
	Stopped:            "stopped",
	Reviewing:          "reviewing",
	Uploading:          "uploading",
	Failed:             "failed",
}

// String returns the lowercase state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsTerminal reports whether a new session may start from s.
func (s State) IsTerminal() bool {
	return s == Idle || s == Failed
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
