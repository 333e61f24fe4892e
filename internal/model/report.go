package model

import (
	"encoding/json"
	"strings"
)

// Report is the combined view served to clients. Sources that have not
// produced a value yet are left nil.
type Report struct {
	Temperature *string      `json:"temperature,omitempty"`
	HDDs        []DriveState `json:"hdds"`
	Zpool       *PoolStatus  `json:"zpool,omitempty"`
	Pings       []PingResult `json:"pings"`
}

func (r *Report) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ErrorResponse struct {
	Message    string   `json:"message"`
	StackTrace []string `json:"stackTrace"`
}

func NewErrorResponse(err error, stack []byte) ErrorResponse {
	resp := ErrorResponse{
		Message:    err.Error(),
		StackTrace: []string{},
	}
	for _, line := range strings.Split(string(stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			resp.StackTrace = append(resp.StackTrace, line)
		}
	}
	return resp
}

func StringPtr(s string) *string {
	return &s
}
