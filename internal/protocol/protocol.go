// Package protocol defines the wire and CLI envelope shapes shared by the
// bridge daemon and every client command, plus the typed error taxonomy.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is stamped into every CLI envelope as protocolVersion.
const Version = "1.0"

// Error codes carried in the error sub-record. The set is closed: anything
// the bridge cannot classify becomes CodeInternal.
const (
	CodeBridgeUnavailable = "BRIDGE_UNAVAILABLE"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeInternal          = "INTERNAL"
)

// ExitCode maps an error code to the process exit code contract:
// 0 success, 1 general/internal, 2 file not found, 3 validation failed,
// 4 invalid input, 5 bridge unavailable.
func ExitCode(code string) int {
	switch code {
	case "":
		return 0
	case CodeFileNotFound:
		return 2
	case CodeValidationFailed:
		return 3
	case CodeInvalidInput, CodeNotFound:
		return 4
	case CodeBridgeUnavailable:
		return 5
	default:
		return 1
	}
}

// Retryable reports whether the code names a transient-availability failure.
// Only these are retried by the client shim; request-shape and semantic
// errors surface immediately.
func Retryable(code string) bool {
	return code == CodeBridgeUnavailable
}

// BridgeError is the typed error that crosses the transport. It satisfies
// error so it can flow through ordinary return paths.
type BridgeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a BridgeError with a formatted message.
func NewError(code, format string, args ...any) *BridgeError {
	return &BridgeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code from err, defaulting to CodeInternal for
// anything untyped.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// Request is the body of POST /rpc.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Reply is the bridge's response to one Request. Exactly one of Result and
// Err is populated.
type Reply struct {
	OK     bool           `json:"ok"`
	Result map[string]any `json:"result,omitempty"`
	Err    *BridgeError   `json:"error,omitempty"`
}

// EncodeRequest serializes a method call into the wire request shape.
func EncodeRequest(method string, params map[string]any) ([]byte, error) {
	if params == nil {
		params = map[string]any{}
	}
	return json.Marshal(Request{Method: method, Params: params})
}

// DecodeRequest parses a wire request body.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewError(CodeInvalidInput, "request body is not valid JSON: %v", err)
	}
	if req.Method == "" {
		return nil, NewError(CodeInvalidInput, "request is missing method")
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}
	return &req, nil
}

// wireReply mirrors Reply with a pointer discriminator so a missing "ok"
// field is distinguishable from false.
type wireReply struct {
	OK     *bool          `json:"ok"`
	Result map[string]any `json:"result"`
	Err    *BridgeError   `json:"error"`
}

// DecodeReply parses a bridge reply. A payload that is not well-formed JSON
// or lacks the ok discriminator fails with CodeMalformedResponse.
func DecodeReply(data []byte) (*Reply, error) {
	var w wireReply
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, NewError(CodeMalformedResponse, "bridge reply is not valid JSON: %v", err)
	}
	if w.OK == nil {
		return nil, NewError(CodeMalformedResponse, "bridge reply is missing ok discriminator")
	}
	r := &Reply{OK: *w.OK, Result: w.Result, Err: w.Err}
	if r.OK {
		if r.Result == nil {
			r.Result = map[string]any{}
		}
		r.Err = nil
	} else if r.Err == nil {
		return nil, NewError(CodeMalformedResponse, "failed bridge reply is missing error record")
	}
	return r, nil
}

// EncodeReply serializes a success or failure reply as the bridge writes it.
func EncodeReply(result map[string]any, err error) []byte {
	var r Reply
	if err != nil {
		code := CodeOf(err)
		msg := err.Error()
		var be *BridgeError
		if errors.As(err, &be) {
			msg = be.Message
		}
		r = Reply{OK: false, Err: &BridgeError{Code: code, Message: msg}}
	} else {
		if result == nil {
			result = map[string]any{}
		}
		r = Reply{OK: true, Result: result}
	}
	data, marshalErr := json.Marshal(r)
	if marshalErr != nil {
		// Result values come from json.Unmarshal or engine summaries, so
		// this only fires on NaN/Inf contamination.
		data = []byte(`{"ok":false,"error":{"code":"INTERNAL","message":"reply not serializable"}}`)
	}
	return data
}

// Envelope is the single JSON object every CLI command writes to stdout.
type Envelope struct {
	OK              bool           `json:"ok"`
	ProtocolVersion string         `json:"protocolVersion"`
	Command         string         `json:"command"`
	Data            map[string]any `json:"data,omitempty"`
	Error           *BridgeError   `json:"error,omitempty"`
}

// OkEnvelope wraps a command result.
func OkEnvelope(command string, data map[string]any) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{OK: true, ProtocolVersion: Version, Command: command, Data: data}
}

// FailEnvelope wraps a command failure. Protocol faults are surfaced to the
// caller as INTERNAL: they indicate a transport or implementation bug, not
// a user error.
func FailEnvelope(command string, err error) Envelope {
	code := CodeOf(err)
	msg := err.Error()
	var be *BridgeError
	if errors.As(err, &be) {
		msg = be.Message
	}
	if code == CodeMalformedResponse {
		code = CodeInternal
	}
	return Envelope{
		OK:              false,
		ProtocolVersion: Version,
		Command:         command,
		Error:           &BridgeError{Code: code, Message: msg},
	}
}
