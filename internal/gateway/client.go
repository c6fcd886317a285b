// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/metrics"
	"github.com/jeranaias/rigchat/internal/model"
)

// Configuration constants for the chat service.
const (
	// DefaultBaseURL is where the service listens in a local deployment.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds one request. Replies are generated before the
	// response is written, so this is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultPageSize is the list page size the service defaults to.
	DefaultPageSize = 100

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// Client talks to the chat service over HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	jar       *sessionJar
	limiter   *rate.Limiter
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	userAgent string
}

// NewClient creates a client for the service at baseURL with its own cookie jar.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar := newSessionJar()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		jar:     jar,
		http: &http.Client{
			Jar:     jar,
			Timeout: DefaultTimeout,
		},
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    zerolog.Nop(),
		userAgent: "rigchat",
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
	return c
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.logger = l
	return c
}

// WithMetrics records request latencies.
func (c *Client) WithMetrics(m *metrics.Metrics) *Client {
	c.metrics = m
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// ResetSession drops every stored cookie.
func (c *Client) ResetSession() {
	c.jar.reset()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation creates an empty conversation.
func (c *Client) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	var out conversationDTO
	err := c.do(ctx, "create_conversation", http.MethodPost, "/conversations",
		createConversationRequest{Title: title}, &out)
	if err != nil {
		return model.Conversation{}, err
	}
	conv := out.toModel()
	conv.Messages = nil
	return conv, nil
}

// ListConversations returns the first page of conversations, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	return c.ListConversationsPage(ctx, 0, DefaultPageSize)
}

// ListConversationsPage returns one page of conversations without messages.
func (c *Client) ListConversationsPage(ctx context.Context, skip, limit int) ([]model.Conversation, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var out []conversationDTO
	if err := c.do(ctx, "list_conversations", http.MethodGet, "/conversations?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	convs := make([]model.Conversation, len(out))
	for i, dto := range out {
		convs[i] = dto.toModel()
	}
	return convs, nil
}

// GetConversation returns a conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id model.ID) (model.Conversation, error) {
	n, err := remoteID(id)
	if err != nil {
		return model.Conversation{}, err
	}
	var out conversationDTO
	if err := c.do(ctx, "get_conversation", http.MethodGet, "/conversations/"+strconv.FormatInt(n, 10), nil, &out); err != nil {
		return model.Conversation{}, err
	}
	conv := out.toModel()
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	return conv, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id model.ID) error {
	n, err := remoteID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "delete_conversation", http.MethodDelete, "/conversations/"+strconv.FormatInt(n, 10), nil, nil)
}

// SendMessage stores a user message and returns it with the generated reply.
func (c *Client) SendMessage(ctx context.Context, conversationID model.ID, content string) (model.Reply, error) {
	n, err := remoteID(conversationID)
	if err != nil {
		return model.Reply{}, err
	}
	var out chatResponse
	err = c.do(ctx, "send_message", http.MethodPost, "/chat",
		chatRequest{ConversationID: n, Message: content}, &out)
	if err != nil {
		return model.Reply{}, err
	}
	return model.Reply{
		User:      out.UserMessage.toModel(),
		Assistant: out.AssistantMessage.toModel(),
	}, nil
}

func remoteID(id model.ID) (int64, error) {
	n, ok := id.Int64()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id.String())
	}
	return n, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// do performs one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With().Str("op", op).Str("request_id", requestID).Logger()
	log.Debug().Str("method", method).Str("path", path).Msg("request")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.metrics.ObserveGateway(op, "error", duration)
		log.Warn().Err(err).Dur("duration", duration).Msg("request failed")
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveGateway(op, strconv.Itoa(resp.StatusCode), duration)
	log.Debug().Int("status", resp.StatusCode).Dur("duration", duration).Msg("response")

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(resp.StatusCode, data)
		log.Info().Int("status", resp.StatusCode).Str("detail", apiErr.Message()).Msg("service rejected request")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
