package protocol_test

import (
	"encoding/json"
	"testing"

	"pgregory.net/rapid"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"", 0},
		{protocol.CodeInternal, 1},
		{protocol.CodeMalformedResponse, 1},
		{"SOMETHING_ELSE", 1},
		{protocol.CodeFileNotFound, 2},
		{protocol.CodeValidationFailed, 3},
		{protocol.CodeInvalidInput, 4},
		{protocol.CodeNotFound, 4},
		{protocol.CodeBridgeUnavailable, 5},
	}
	for _, tc := range cases {
		if got := protocol.ExitCode(tc.code); got != tc.want {
			t.Errorf("ExitCode(%q) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestRetryablePredicate(t *testing.T) {
	if !protocol.Retryable(protocol.CodeBridgeUnavailable) {
		t.Error("BRIDGE_UNAVAILABLE must be retryable")
	}
	for _, code := range []string{
		protocol.CodeInvalidInput,
		protocol.CodeFileNotFound,
		protocol.CodeValidationFailed,
		protocol.CodeNotFound,
		protocol.CodeMalformedResponse,
		protocol.CodeInternal,
	} {
		if protocol.Retryable(code) {
			t.Errorf("%s must not be retryable", code)
		}
	}
}

func TestDecodeReplyMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing ok", `{"result":{}}`},
		{"failure without error", `{"ok":false}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := protocol.DecodeReply([]byte(tc.body))
			if err == nil {
				t.Fatal("expected decode error")
			}
			if protocol.CodeOf(err) != protocol.CodeMalformedResponse {
				t.Errorf("code = %s, want MALFORMED_RESPONSE", protocol.CodeOf(err))
			}
		})
	}
}

func TestDecodeReplyError(t *testing.T) {
	r, err := protocol.DecodeReply([]byte(`{"ok":false,"error":{"code":"INVALID_INPUT","message":"width must be > 0"}}`))
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if r.OK {
		t.Error("expected ok=false")
	}
	if r.Err == nil || r.Err.Code != protocol.CodeInvalidInput {
		t.Errorf("error record = %+v", r.Err)
	}
}

func TestDecodeRequestValidation(t *testing.T) {
	if _, err := protocol.DecodeRequest([]byte(`{"params":{}}`)); protocol.CodeOf(err) != protocol.CodeInvalidInput {
		t.Errorf("missing method: code = %s, want INVALID_INPUT", protocol.CodeOf(err))
	}
	req, err := protocol.DecodeRequest([]byte(`{"method":"system.health"}`))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Params == nil {
		t.Error("nil params must be normalized to an empty map")
	}
}

// generateResult builds an arbitrary JSON-representable result object.
func generateResult(t *rapid.T) map[string]any {
	n := rapid.IntRange(0, 6).Draw(t, "n")
	out := map[string]any{}
	for i := 0; i < n; i++ {
		key := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9]{0,10}`).Draw(t, "key")
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			out[key] = rapid.StringN(0, 40, -1).Draw(t, "str")
		case 1:
			// JSON numbers decode as float64; stick to integral-friendly values.
			out[key] = float64(rapid.IntRange(-1_000_000, 1_000_000).Draw(t, "num"))
		case 2:
			out[key] = rapid.Bool().Draw(t, "bool")
		default:
			out[key] = nil
		}
	}
	return out
}

func TestReplyRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		original := generateResult(rt)
		decoded, err := protocol.DecodeReply(protocol.EncodeReply(original, nil))
		if err != nil {
			rt.Fatalf("DecodeReply: %v", err)
		}
		if !decoded.OK {
			rt.Fatal("round-tripped reply lost ok=true")
		}
		want, _ := json.Marshal(original)
		got, _ := json.Marshal(decoded.Result)
		if string(want) != string(got) {
			rt.Errorf("result mismatch:\n got %s\nwant %s", got, want)
		}
	})
}

func TestErrorReplyRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		code := rapid.SampledFrom([]string{
			protocol.CodeBridgeUnavailable,
			protocol.CodeInvalidInput,
			protocol.CodeFileNotFound,
			protocol.CodeValidationFailed,
			protocol.CodeNotFound,
			protocol.CodeInternal,
		}).Draw(rt, "code")
		msg := rapid.StringN(1, 80, -1).Draw(rt, "msg")

		decoded, err := protocol.DecodeReply(protocol.EncodeReply(nil, protocol.NewError(code, "%s", msg)))
		if err != nil {
			rt.Fatalf("DecodeReply: %v", err)
		}
		if decoded.OK {
			rt.Fatal("error reply decoded as success")
		}
		if decoded.Err.Code != code || decoded.Err.Message != msg {
			rt.Errorf("error record = %+v, want {%s %s}", decoded.Err, code, msg)
		}
	})
}

func TestRequestRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		method := rapid.StringMatching(`[a-z]+\.[a-z_]+`).Draw(rt, "method")
		params := generateResult(rt)

		data, err := protocol.EncodeRequest(method, params)
		if err != nil {
			rt.Fatalf("EncodeRequest: %v", err)
		}
		req, err := protocol.DecodeRequest(data)
		if err != nil {
			rt.Fatalf("DecodeRequest: %v", err)
		}
		if req.Method != method {
			rt.Errorf("method = %q, want %q", req.Method, method)
		}
		want, _ := json.Marshal(params)
		got, _ := json.Marshal(req.Params)
		if string(want) != string(got) {
			rt.Errorf("params mismatch:\n got %s\nwant %s", got, want)
		}
	})
}

func TestFailEnvelopeMasksProtocolFaults(t *testing.T) {
	env := protocol.FailEnvelope("status", protocol.NewError(protocol.CodeMalformedResponse, "bad reply"))
	if env.Error.Code != protocol.CodeInternal {
		t.Errorf("code = %s, want INTERNAL", env.Error.Code)
	}
	if env.ProtocolVersion != protocol.Version || env.Command != "status" {
		t.Errorf("envelope header = %q/%q", env.ProtocolVersion, env.Command)
	}
}
