package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/logger"
)

// StreamPath is the chat proxy endpoint relative to the base URL
const StreamPath = "/api/chat/stream"

// ProxyTransport streams replies from the dashboard's chat proxy. The proxy
// answers with newline-delimited JSON frames; server-sent-event framing
// ("data: " prefixes, "[DONE]") is accepted as well.
type ProxyTransport struct {
	baseURL    string
	httpClient *http.Client
}

// proxyFrame is one line of the proxy response body
type proxyFrame struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Error   string `json:"error"`
}

// NewProxyTransport creates a transport for the proxy at baseURL
func NewProxyTransport(baseURL string) *ProxyTransport {
	return NewProxyTransportWithTimeout(baseURL, 0)
}

// NewProxyTransportWithTimeout creates a transport whose requests, including
// reading the whole stream, are bounded by timeout. Zero means no limit.
func NewProxyTransportWithTimeout(baseURL string, timeout time.Duration) *ProxyTransport {
	return &ProxyTransport{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Stream posts the turn and returns a channel of reply fragments
func (p *ProxyTransport) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	if req.History == nil {
		req.History = []chat.HistoryEntry{}
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+StreamPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson, text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	logger.WithComponent("proxy").Debug("stream opened",
		"conversation", req.ConversationID, "history", len(req.History))

	chunks := make(chan Chunk, 100)
	go p.readStream(ctx, resp.Body, chunks)
	return chunks, nil
}

func (p *ProxyTransport) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- Chunk) {
	defer close(chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if line == "[DONE]" {
			return
		}

		var frame proxyFrame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			send(ctx, chunks, Chunk{Err: fmt.Errorf("failed to parse stream frame: %w", err)})
			return
		}
		if frame.Error != "" {
			send(ctx, chunks, Chunk{Err: errors.New(frame.Error)})
			return
		}
		if frame.Content != "" && !send(ctx, chunks, Chunk{Content: frame.Content}) {
			return
		}
		if frame.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		send(ctx, chunks, Chunk{Err: fmt.Errorf("stream reading error: %w", err)})
	}
}

// statusError builds an error from a non-200 response, preferring the
// JSON "error" field of the body
func statusError(resp *http.Response) error {
	errorBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("request failed with status %d (failed to read error response: %w)", resp.StatusCode, err)
	}

	var errorResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(errorBody, &errorResp) == nil && errorResp.Error != "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Error)
	}

	if msg := strings.TrimSpace(string(errorBody)); msg != "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}
