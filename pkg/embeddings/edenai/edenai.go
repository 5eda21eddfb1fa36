// Package edenai implements pkg/embeddings' Embedder against an Eden-style
// image embedding API. The endpoint accepts either a JSON body referencing a
// remote image by URL or a multipart upload of a local file, and returns the
// vector nested under the first configured provider's items.
package edenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/canvaslab/atlas/pkg/embeddings"
)

const (
	// DefaultEndpoint is the default image embeddings endpoint.
	DefaultEndpoint = "https://api.edenai.run/v2/image/embeddings"

	// DefaultProvider is the default upstream embedding provider.
	DefaultProvider = "google"
)

// Client wraps the provider's image embedding API.
type Client struct {
	endpoint   string
	apiKey     string
	providers  []string
	httpClient *http.Client
}

// Config holds configuration for the embedding client.
type Config struct {
	// Endpoint is the embeddings API URL. Defaults to DefaultEndpoint.
	Endpoint string

	// APIKey is the bearer token for the API.
	APIKey string

	// Providers are the upstream providers to request, first one wins.
	// Defaults to [DefaultProvider].
	Providers []string

	// Timeout bounds each HTTP call. Defaults to 120s. The pipeline relies
	// on this timeout; it imposes no separate one.
	Timeout time.Duration
}

// NewClient creates an embedding client for the configured endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	providers := cfg.Providers
	if len(providers) == 0 {
		providers = []string{DefaultProvider}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		endpoint:  endpoint,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		providers: providers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// jsonRequest is the body for remote-URL references.
type jsonRequest struct {
	ResponseAsDict       bool     `json:"response_as_dict"`
	AttributesAsList     bool     `json:"attributes_as_list"`
	ShowBase64           bool     `json:"show_base_64"`
	ShowOriginalResponse bool     `json:"show_original_response"`
	Representation       string   `json:"representation"`
	Providers            []string `json:"providers"`
	FileURL              string   `json:"file_url"`
}

// providerResult is one provider's slice of the response.
type providerResult struct {
	Items []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"items"`
}

// Embed converts an image reference into a vector embedding. Remote http(s)
// references are sent as a JSON file_url; anything else is treated as a local
// path and uploaded as multipart form data.
func (c *Client) Embed(ctx context.Context, reference string) ([]float32, error) {
	var (
		req *http.Request
		err error
	)
	if isRemote(reference) {
		req, err = c.newJSONRequest(ctx, reference)
	} else {
		req, err = c.newMultipartRequest(ctx, reference)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request for %s: %v", embeddings.ErrProvider, reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if oversized(resp.StatusCode, body) {
			return nil, fmt.Errorf("%w: %s", embeddings.ErrSizeLimit, reference)
		}
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			embeddings.ErrProvider, reference, resp.StatusCode, string(body))
	}

	var parsed map[string]providerResult
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response for %s: %v", embeddings.ErrProvider, reference, err)
	}

	result, ok := parsed[c.providers[0]]
	if !ok || len(result.Items) == 0 || len(result.Items[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response for %s", embeddings.ErrProvider, reference)
	}

	return result.Items[0].Embedding, nil
}

// EmbedMany embeds references sequentially. One failure never aborts the
// batch: failing references are recorded and excluded from the result. The
// returned error is non-nil only when every reference failed.
func (c *Client) EmbedMany(ctx context.Context, references []string) (*embeddings.BatchResult, error) {
	result := &embeddings.BatchResult{}

	for _, ref := range references {
		vec, err := c.Embed(ctx, ref)
		if err != nil {
			result.Failures = append(result.Failures, embeddings.Failure{Reference: ref, Err: err})
			continue
		}
		result.Embeddings = append(result.Embeddings, embeddings.Embedded{Reference: ref, Vector: vec})
	}

	if len(references) > 0 && len(result.Embeddings) == 0 {
		return result, fmt.Errorf("%w: all %d references failed", embeddings.ErrProvider, len(references))
	}

	return result, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, url string) (*http.Request, error) {
	body := jsonRequest{
		ResponseAsDict:       true,
		AttributesAsList:     false,
		ShowBase64:           true,
		ShowOriginalResponse: false,
		Representation:       "document",
		Providers:            c.providers,
		FileURL:              url,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request for %s: %v", embeddings.ErrProvider, url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %v", embeddings.ErrProvider, url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func (c *Client) newMultipartRequest(ctx context.Context, path string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", embeddings.ErrProvider, path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%w: building form for %s: %v", embeddings.ErrProvider, path, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", embeddings.ErrProvider, path, err)
	}

	fields := map[string]string{
		"response_as_dict":       "true",
		"attributes_as_list":     "false",
		"show_base_64":           "true",
		"show_original_response": "false",
		"representation":         "document",
		"providers":              strings.Join(c.providers, ","),
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("%w: building form for %s: %v", embeddings.ErrProvider, path, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%w: building form for %s: %v", embeddings.ErrProvider, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %v", embeddings.ErrProvider, path, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return req, nil
}

func isRemote(reference string) bool {
	return strings.HasPrefix(reference, "http://") || strings.HasPrefix(reference, "https://")
}

// oversized classifies the provider's size rejection so the pipeline can skip
// the image instead of counting it as an error.
func oversized(status int, body []byte) bool {
	if status == http.StatusRequestEntityTooLarge {
		return true
	}
	msg := strings.ToLower(string(body))
	return strings.Contains(msg, "too large") || strings.Contains(msg, "size limit")
}

// Ensure Client implements embeddings.Embedder.
var _ embeddings.Embedder = (*Client)(nil)
