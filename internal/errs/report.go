package errs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Report is the canonical structured error value produced anywhere in the
// core. The error constructors below return it wrapped in a *ReportError,
// and AsReport unwraps it again.
type Report struct {
	Schema  string         `json:"schema"` // always "tyrellgo.error/v1"
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report as an error so it survives errors.As unwrapping.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts the *Report from an error chain, if any.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// New builds a Report for the given code and message, attaching Data.
func New(code, message string, data map[string]any) error {
	info, ok := Registry[code]
	phase := "unknown"
	if ok {
		phase = info.Phase
	}
	return &ReportError{Rep: &Report{
		Schema:  "tyrellgo.error/v1",
		Code:    code,
		Phase:   phase,
		Message: message,
		Data:    data,
	}}
}

// Newf builds a Report with a formatted message.
func Newf(code, format string, args ...any) error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// ToJSON renders a Report deterministically (sorted map keys via encoding/json).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
