package model

const (
	PoolStateUnknown = "UNKNOWN"
	PoolStateError   = "ERROR"

	DriveStatusError = "error"
)

type DriveState struct {
	Name   string  `json:"name"`
	Status *string `json:"status,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type DriveElementStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Read     string `json:"read"`
	Write    string `json:"write"`
	Checksum string `json:"checksum"`
}

// PoolStatus is the parsed form of a pool status report. The embedded
// counters mirror the first member drive whenever any drive was parsed.
type PoolStatus struct {
	Name     string               `json:"name"`
	State    string               `json:"state"`
	Read     string               `json:"read"`
	Write    string               `json:"write"`
	Checksum string               `json:"checksum"`
	Drives   []DriveElementStatus `json:"drives"`
}

func NewPoolStatus() PoolStatus {
	return PoolStatus{
		State:  PoolStateUnknown,
		Drives: []DriveElementStatus{},
	}
}

func FailedPoolStatus() PoolStatus {
	return PoolStatus{
		State:  PoolStateError,
		Drives: []DriveElementStatus{},
	}
}

type PingResult struct {
	Target string  `json:"target"`
	Result *string `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}
