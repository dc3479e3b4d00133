package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeTransport struct {
	status int
	body   string
	seen   []byte
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		f.seen, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	resp := &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func newAnthropicWithTransport(rt http.RoundTripper) *AnthropicCompleter {
	return NewAnthropicCompleter("test-key", "",
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithMaxRetries(0),
	)
}

func TestAnthropicCompleterSendsSystemSeparately(t *testing.T) {
	fake := &fakeTransport{
		status: http.StatusOK,
		body:   `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"doing "},{"type":"text","text":"well"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`,
	}

	req := sampleRequest()
	req.Model = "claude-test"
	reply, err := newAnthropicWithTransport(fake).Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if reply != "doing well" {
		t.Fatalf("unexpected reply %q", reply)
	}

	var body struct {
		Model     string  `json:"model"`
		MaxTokens int     `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(fake.seen, &body); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if body.Model != "claude-test" || body.MaxTokens != 500 {
		t.Fatalf("unexpected request settings: %+v", body)
	}
	if len(body.System) != 1 || body.System[0].Text != "be kind" {
		t.Fatalf("expected system prompt as top-level field, got %+v", body.System)
	}
	if len(body.Messages) != 3 || body.Messages[0].Role != "user" || body.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestAnthropicCompleterServiceError(t *testing.T) {
	fake := &fakeTransport{
		status: http.StatusBadRequest,
		body:   `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`,
	}

	if _, err := newAnthropicWithTransport(fake).Complete(context.Background(), sampleRequest()); err == nil {
		t.Fatal("expected error for rejected request")
	}
}
