package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// CredentialsProvider supplies the bearer credential attached to every
// Domain API request. Token acquisition itself lives outside this core.
type CredentialsProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials is a CredentialsProvider backed by a fixed token.
type StaticCredentials string

func (s StaticCredentials) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// Config holds the configuration for the Domain API client.
type Config struct {
	BaseURL     string
	Credentials CredentialsProvider
	Timeout     time.Duration
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Credentials == nil {
		return fmt.Errorf("credentials provider is required")
	}
	return nil
}

// Client is the Domain API client. It fetches spots, reports and buoy
// telemetry, mints presigned upload URLs and deletes uploaded media.
// Thread-safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Domain API client with the given configuration.
//
// Returns a new Client instance or an error if configuration is invalid.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchSpots lists the spots belonging to a country/region pair.
func (c *Client) FetchSpots(ctx context.Context, country, region string) ([]Spot, error) {
	path := fmt.Sprintf("/spots?country=%s&region=%s",
		url.QueryEscape(country), url.QueryEscape(region))

	var spots []Spot
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, &spots); err != nil {
		return nil, fmt.Errorf("fetch spots failed: %w", err)
	}
	return spots, nil
}

// FetchSpotReports returns the recent condition reports for one spot.
func (c *Client) FetchSpotReports(ctx context.Context, spotID string) ([]Report, error) {
	path := fmt.Sprintf("/spots/%s/reports", url.PathEscape(spotID))

	var reports []Report
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, &reports); err != nil {
		return nil, fmt.Errorf("fetch reports failed: %w", err)
	}
	return reports, nil
}

// FetchTelemetry returns the latest reading for each named buoy station.
func (c *Client) FetchTelemetry(ctx context.Context, stations []string) ([]BuoyReading, error) {
	payload := struct {
		Stations []string `json:"stations"`
	}{Stations: stations}

	var readings []BuoyReading
	if err := c.makeRequest(ctx, http.MethodPost, "/telemetry/latest", payload, &readings); err != nil {
		return nil, fmt.Errorf("fetch telemetry failed: %w", err)
	}
	return readings, nil
}

// FetchSpotImage downloads the raw bytes of a spot's hero image.
func (c *Client) FetchSpotImage(ctx context.Context, spotID string) ([]byte, error) {
	path := fmt.Sprintf("/spots/%s/image", url.PathEscape(spotID))

	data, err := c.makeRawRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("fetch spot image failed: %w", err)
	}
	return data, nil
}

// GenerateImageUploadURL mints a presigned image upload target scoped to a
// logical location key ("<country>_<region>" style).
func (c *Client) GenerateImageUploadURL(ctx context.Context, scopeKey string) (*UploadTarget, error) {
	return c.generateUploadURL(ctx, KindImage, scopeKey)
}

// GenerateVideoUploadURL mints a presigned video upload target.
func (c *Client) GenerateVideoUploadURL(ctx context.Context, scopeKey string) (*UploadTarget, error) {
	return c.generateUploadURL(ctx, KindVideo, scopeKey)
}

func (c *Client) generateUploadURL(ctx context.Context, kind MediaKind, scopeKey string) (*UploadTarget, error) {
	payload := struct {
		Scope string `json:"scope"`
	}{Scope: scopeKey}

	path := fmt.Sprintf("/media/%s/upload-url", kind)
	var target UploadTarget
	if err := c.makeRequest(ctx, http.MethodPost, path, payload, &target); err != nil {
		return nil, fmt.Errorf("generate %s upload URL failed: %w", kind, err)
	}
	if target.UploadURL == "" || target.ObjectKey == "" {
		return nil, fmt.Errorf("generate %s upload URL failed: incomplete target", kind)
	}
	return &target, nil
}

// DeleteUploadedMedia removes an uploaded object from the blob store.
// Deleting a key that no longer exists is not an error.
func (c *Client) DeleteUploadedMedia(ctx context.Context, objectKey string, kind MediaKind) error {
	payload := struct {
		ObjectKey string    `json:"object_key"`
		Kind      MediaKind `json:"kind"`
	}{ObjectKey: objectKey, Kind: kind}

	err := c.makeRequest(ctx, http.MethodPost, "/media/delete", payload, nil)
	if err != nil {
		return fmt.Errorf("delete uploaded media failed: %w", err)
	}
	return nil
}

// makeRequest makes a JSON request to the Domain API and decodes the
// response into out when out is non-nil.
func (c *Client) makeRequest(ctx context.Context, method, path string, payload, out interface{}) error {
	reqURL := c.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return fmt.Errorf("request timed out: %w", err)
		}
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("API request failed with status %d: %w", resp.StatusCode, &apiErr)
		}
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// makeRawRequest fetches a non-JSON body (image bytes) from the Domain API.
func (c *Client) makeRawRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.config.Credentials.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
