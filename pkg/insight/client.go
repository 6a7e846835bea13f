package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
)

// Request carries one analysis request to a provider.
type Request struct {
	Topic            string
	Transcript       string
	Type             Type
	ParticipantCount int
	SessionContext   map[string]any
	ClientID         string
}

// Response is a provider's analysis result.
type Response struct {
	Content     string
	Confidence  float64
	Suggestions []string
	Metadata    map[string]any
}

// Provider is one analysis endpoint.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*Response, error)
}

// ClientConfig configures an HTTP analysis client.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// PrimaryClient calls the live analysis endpoint (POST /api/analyze-live).
type PrimaryClient struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewPrimaryClient creates a client for the primary analysis endpoint.
func NewPrimaryClient(config ClientConfig) *PrimaryClient {
	return &PrimaryClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider identifier.
func (c *PrimaryClient) Name() string {
	return "analyze-live"
}

// primaryRequest is the wire shape of the live analysis request.
type primaryRequest struct {
	SessionTopic     string         `json:"sessionTopic"`
	LiveTranscript   string         `json:"liveTranscript"`
	AnalysisType     string         `json:"analysisType"`
	ParticipantCount int            `json:"participantCount"`
	SessionContext   map[string]any `json:"sessionContext,omitempty"`
	ClientID         string         `json:"clientId"`
}

// primaryResponse is the wire shape of the live analysis response.
type primaryResponse struct {
	Success     bool           `json:"success"`
	Content     string         `json:"content"`
	Confidence  float64        `json:"confidence,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Analyze posts the request and decodes the structured response. A non-OK
// status, a success:false payload, or empty content all count as failure so
// the caller escalates to the fallback.
func (c *PrimaryClient) Analyze(ctx context.Context, req Request) (*Response, error) {
	body := primaryRequest{
		SessionTopic:     req.Topic,
		LiveTranscript:   req.Transcript,
		AnalysisType:     string(req.Type),
		ParticipantCount: req.ParticipantCount,
		SessionContext:   req.SessionContext,
		ClientID:         req.ClientID,
	}

	raw, status, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: primary endpoint returned %d", rterrors.ErrUnavailable, status)
	}

	var resp primaryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding primary response: %w", err)
	}
	if !resp.Success || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: primary response missing content", rterrors.ErrUnavailable)
	}

	return &Response{
		Content:     resp.Content,
		Confidence:  resp.Confidence,
		Suggestions: resp.Suggestions,
		Metadata:    resp.Metadata,
	}, nil
}

func (c *PrimaryClient) post(ctx context.Context, body any) ([]byte, int, error) {
	return postJSON(ctx, c.httpClient, c.config.Endpoint, c.config.APIKey, body)
}

// FallbackClient calls the legacy analysis endpoint (POST /api/analyze)
// with a reduced payload shape.
type FallbackClient struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewFallbackClient creates a client for the fallback analysis endpoint.
func NewFallbackClient(config ClientConfig) *FallbackClient {
	return &FallbackClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider identifier.
func (c *FallbackClient) Name() string {
	return "analyze-legacy"
}

// fallbackRequest is the reduced wire shape of the legacy request.
type fallbackRequest struct {
	QuestionContext   string `json:"questionContext"`
	CurrentTranscript string `json:"currentTranscript"`
	AnalysisType      string `json:"analysisType"`
}

// Analyze posts the reduced payload. The legacy endpoint returns free-form
// JSON or plain text; content is extracted from the insights, analysis, or
// result field, falling back to the raw body.
func (c *FallbackClient) Analyze(ctx context.Context, req Request) (*Response, error) {
	body := fallbackRequest{
		QuestionContext:   req.Topic,
		CurrentTranscript: req.Transcript,
		AnalysisType:      string(req.Type),
	}

	raw, status, err := postJSON(ctx, c.httpClient, c.config.Endpoint, c.config.APIKey, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: fallback endpoint returned %d", rterrors.ErrUnavailable, status)
	}

	content := extractLegacyContent(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: fallback response empty", rterrors.ErrUnavailable)
	}
	return &Response{Content: content}, nil
}

// extractLegacyContent pulls usable text out of a free-form legacy response.
func extractLegacyContent(raw []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, key := range []string{"insights", "analysis", "result"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

func postJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", rterrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
