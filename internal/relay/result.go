package relay

import (
	"errors"
	"fmt"
	"strings"

	"siteops/pkg/util"
)

// Result is the outcome of a submission. Success is the discriminant: a
// successful Result carries MsgConfirmation and no details, a failed one
// carries a readable message and the diagnostic details of its cause.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// User-facing messages
const (
	MsgConfirmation = "Thank you for your message! We'll get back to you soon."
	MsgRejected     = "Failed to send message. Please try again."
	MsgNetwork      = "Network error. Please check your connection and try again."
	MsgDuplicate    = "This message was already sent. We'll get back to you soon."
)

// Succeeded returns the fixed confirmation result
func Succeeded() Result {
	return Result{Success: true, Message: MsgConfirmation}
}

// Failed converts err into a failure result. Network-class errors get the
// fixed connectivity message; everything else surfaces its own text.
func Failed(err error) Result {
	if err == nil {
		err = errors.New(MsgRejected)
	}
	msg := err.Error()
	if util.IsNetworkKind(util.ClassifyError(err)) {
		msg = MsgNetwork
	}
	return Result{
		Success: false,
		Message: msg,
		Details: detailsOf(err),
	}
}

// detailsOf records the error's type name and its wrap chain, outermost first
func detailsOf(err error) map[string]any {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return map[string]any{
		"name":  fmt.Sprintf("%T", err),
		"stack": strings.Join(chain, "\n"),
	}
}
