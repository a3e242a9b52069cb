package matcher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bioattend/internal/biometric"
)

// ScoreResult is the scorer's answer for one sample/template pair.
type ScoreResult struct {
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	MatchScore      float64 `json:"match_score"`
	Threshold       float64 `json:"threshold"`
	MatchResult     bool    `json:"match_result"`
	ConfidenceLevel string  `json:"confidence_level"`
}

// Client calls the fingerprint scoring service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // image preprocessing on the scorer is slow
		},
	}
}

// Score asks the scorer to compare a captured sample with a stored template.
// Both are sent as canonical standard base64; the sample is normalized
// first so data-URI, URL-safe and unpadded captures score alike.
func (c *Client) Score(ctx context.Context, sample string, stored []byte) (*ScoreResult, error) {
	sample = biometric.Normalize(sample)
	if sample == "" {
		return nil, biometric.ErrSampleRequired
	}

	body, _ := json.Marshal(map[string]string{
		"sample": sample,
		"stored": base64.StdEncoding.EncodeToString(stored),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify/fingerprint", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matcher request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("matcher error %s: %s", resp.Status, string(bodyBytes))
	}

	var out ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Status != "" && out.Status != "success" {
		return nil, fmt.Errorf("matcher returned %s: %s", out.Status, out.Message)
	}
	return &out, nil
}

// Health checks if the scorer is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("matcher unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("matcher unhealthy: %s", resp.Status)
	}
	return nil
}

// Verifier adapts the scorer to biometric.Verifier. A Threshold of zero
// defers to the threshold the scorer reports.
type Verifier struct {
	Client    *Client
	Threshold float64
}

// NewVerifier returns biometric.Bypass when the client is in skip mode.
func NewVerifier(c *Client, threshold float64) biometric.Verifier {
	if c == nil || c.Skip {
		return biometric.Bypass{}
	}
	return &Verifier{Client: c, Threshold: threshold}
}

// Verify scores the sample and judges it against the threshold.
func (v *Verifier) Verify(ctx context.Context, sample string, stored []byte) (biometric.Outcome, error) {
	res, err := v.Client.Score(ctx, sample, stored)
	if err != nil {
		return biometric.Outcome{}, err
	}
	threshold := v.Threshold
	if threshold <= 0 {
		threshold = res.Threshold
	}
	return biometric.Judge(res.MatchScore, threshold), nil
}
