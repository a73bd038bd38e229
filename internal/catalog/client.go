// Package catalog provides clients for the Problem Bank service, which owns
// problem metadata and track definitions.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// serviceName identifies this service on internal API calls.
const serviceName = "curriculum-orchestrator"

const defaultCandidateLimit = 50

// Client fetches problems and tracks from the Problem Bank internal API.
type Client interface {
	// GetProblem retrieves metadata for a single problem.
	GetProblem(ctx context.Context, problemID string) (*domain.Problem, error)

	// GetCandidates lists problems for a subject, optionally scoped to a track.
	GetCandidates(ctx context.Context, subject domain.Subject, trackID *uuid.UUID) ([]domain.Problem, error)

	// GetTrack fetches a track definition by slug.
	GetTrack(ctx context.Context, slug string) (*domain.Track, error)
}

// HTTPClient is the direct HTTP implementation of Client.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a Problem Bank client with connection pooling tuned
// for many small internal requests.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// GetProblem retrieves metadata for a single problem.
func (c *HTTPClient) GetProblem(ctx context.Context, problemID string) (*domain.Problem, error) {
	var p domain.Problem
	path := "/internal/problems/" + url.PathEscape(problemID)
	if err := c.getJSON(ctx, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCandidates lists problems for a subject, optionally scoped to a track.
func (c *HTTPClient) GetCandidates(ctx context.Context, subject domain.Subject, trackID *uuid.UUID) ([]domain.Problem, error) {
	params := url.Values{}
	params.Set("subject", string(subject))
	params.Set("limit", strconv.Itoa(defaultCandidateLimit))
	if trackID != nil {
		params.Set("track_id", trackID.String())
	}

	var body struct {
		Items []domain.Problem `json:"items"`
	}
	if err := c.getJSON(ctx, "/internal/problems", params, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

// GetTrack fetches a track definition by slug.
func (c *HTTPClient) GetTrack(ctx context.Context, slug string) (*domain.Track, error) {
	var t domain.Track
	path := "/internal/tracks/" + url.PathEscape(slug)
	if err := c.getJSON(ctx, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Service", serviceName)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("problem bank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("problem bank %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
