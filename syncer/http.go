package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studymesh/studymesh/core"
)

// HTTPPusher delivers batches to the external message store over its internal
// sync endpoint. Requests carry a shared service credential, not end-user
// auth.
type HTTPPusher struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPPusher creates a pusher for the given sync endpoint URL. A nil
// client gets a default with a request timeout.
func NewHTTPPusher(endpoint, token string, client *http.Client) *HTTPPusher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPPusher{endpoint: endpoint, token: token, client: client}
}

// Push sends one batch. A 404 from the store means the conversation record
// was deleted upstream and maps to ErrResourceGone; other non-2xx statuses
// are transient failures.
func (p *HTTPPusher) Push(ctx context.Context, batch Batch) (PushResult, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return PushResult{}, fmt.Errorf("encode sync batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return PushResult{}, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return PushResult{}, fmt.Errorf("push sync batch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return PushResult{}, fmt.Errorf("conversation %s: %w", batch.ConversationID, ErrResourceGone)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PushResult{}, fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	var result PushResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return PushResult{}, fmt.Errorf("decode sync response: %w", err)
	}
	return result, nil
}

// History fetches the stored transcript for a conversation, ordered by
// sequence. A 404 means the store holds no record yet and yields an empty
// history rather than an error.
func (p *HTTPPusher) History(ctx context.Context, conversationID, userID string) ([]*core.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	q := req.URL.Query()
	q.Set("conversationId", conversationID)
	q.Set("userId", userID)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	var body struct {
		Messages []BatchMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	messages := make([]*core.Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		messages = append(messages, core.NewMessage(m.Role, core.TextPart{Text: m.Content}))
	}
	return messages, nil
}
