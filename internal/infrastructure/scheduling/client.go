// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package scheduling is the adapter for the third-party scheduling service:
// its read API client and its webhook signature scheme.
package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/httpclient"
)

// Client reads scheduled events from the scheduling API
type Client struct {
	config     Config
	baseURL    *url.URL
	httpClient *httpclient.Client
}

var _ port.CanonicalEventFetcher = (*Client)(nil)

// NewClient creates a new scheduling API client with the given configuration
func NewClient(cfg Config) (*Client, error) {
	if cfg.MockMode {
		return nil, nil // Return nil for mock mode - provider wires the mock fetcher
	}

	if cfg.BaseURL == "" {
		return nil, errors.NewConfiguration("scheduling API base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.NewConfiguration(fmt.Sprintf("invalid scheduling API base URL %q", cfg.BaseURL), err)
	}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	httpConfig := httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxAttempts - 1,
		RetryDelay:   cfg.RetryDelay,
		RetryBackoff: true,
		MaxDelay:     cfg.MaxDelay,
		NoJitter:     true,
		Transport:    otelhttp.NewTransport(http.DefaultTransport),
		OnRetry: func(attempt int, delay time.Duration, err error) {
			metrics.FetchRetries.Inc()
			slog.Debug("retrying scheduling API request",
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"error", err,
			)
		},
	}

	client := &Client{
		config:     cfg,
		baseURL:    base,
		httpClient: httpclient.NewClient(httpConfig),
	}

	client.httpClient.AddRoundTripper(httpclient.NewBearerTokenRoundTripper(""))
	if cfg.RateLimit > 0 {
		client.httpClient.AddRoundTripper(httpclient.NewRateLimitRoundTripper(cfg.RateLimit, cfg.RateBurst))
	}

	slog.InfoContext(context.Background(), "scheduling API client initialized",
		"base_url", base.String(),
		"max_attempts", cfg.MaxAttempts,
	)

	return client, nil
}

// GetScheduledEvent fetches one event by reference. Only the UUID is taken
// from the reference; the host always comes from configuration so the token
// is never sent to a host named in a webhook payload.
func (c *Client) GetScheduledEvent(ctx context.Context, eventRef, accessToken string) (*model.CanonicalEvent, error) {
	uuid, err := EventUUID(eventRef)
	if err != nil {
		return nil, err
	}

	var response ScheduledEventResponse
	if err := c.makeRequest(ctx, accessToken, c.endpoint("scheduled_events", uuid), &response); err != nil {
		return nil, err
	}

	event := response.Resource.ToCanonical(eventRef)

	slog.DebugContext(ctx, "scheduled event fetched",
		"event_uuid", uuid,
		"status", event.Status,
	)

	return event, nil
}

// ListScheduledEvents returns the first page of events of a type starting in [minStart, maxStart)
func (c *Client) ListScheduledEvents(ctx context.Context, accessToken, eventTypeRef string, minStart, maxStart time.Time) ([]*model.CanonicalEvent, error) {
	query := url.Values{
		"event_type":     {eventTypeRef},
		"min_start_time": {minStart.UTC().Format(time.RFC3339)},
		"max_start_time": {maxStart.UTC().Format(time.RFC3339)},
		"count":          {strconv.Itoa(c.config.PageSize)},
		"sort":           {"start_time:asc"},
	}

	var response ScheduledEventCollection
	if err := c.makeRequest(ctx, accessToken, c.endpoint("scheduled_events")+"?"+query.Encode(), &response); err != nil {
		return nil, err
	}

	events := make([]*model.CanonicalEvent, 0, len(response.Collection))
	for i := range response.Collection {
		if response.Collection[i].URI == "" {
			continue
		}
		events = append(events, response.Collection[i].ToCanonical(""))
	}

	if response.Pagination.NextPage != "" || response.Pagination.NextPageToken != "" {
		slog.InfoContext(ctx, "scheduled event listing truncated to first page",
			"event_type", eventTypeRef,
			"page_size", len(events),
		)
	}

	return events, nil
}

// makeRequest centralizes API calls with authentication and error handling
func (c *Client) makeRequest(ctx context.Context, accessToken, reqURL string, result any) error {
	if accessToken == "" {
		return errors.NewUnauthorized("no scheduling API access token")
	}

	resp, err := c.httpClient.Request(httpclient.WithAccessToken(ctx, accessToken), http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return MapHTTPError(ctx, err)
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return errors.NewUnexpected("failed to parse scheduling API response", err)
	}

	return nil
}

func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	u.Path = path.Join(append([]string{u.Path}, segments...)...)
	return u.String()
}

// EventUUID returns the last path segment of an event reference URI
func EventUUID(eventRef string) (string, error) {
	if eventRef == "" {
		return "", errors.NewValidation("event reference is required")
	}

	u, err := url.Parse(eventRef)
	if err != nil {
		return "", errors.NewValidation("event reference is not a valid URI", err)
	}

	uuid := path.Base(strings.TrimRight(u.Path, "/"))
	if uuid == "" || uuid == "." || uuid == "/" {
		return "", errors.NewValidation(fmt.Sprintf("event reference %q has no identifier", eventRef))
	}

	return uuid, nil
}
