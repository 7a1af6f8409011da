// Package storage talks to the downstream document store over HTTP. Every
// request presents the delegated credential obtained through the exchange;
// the caller's inbound credential never reaches this adapter.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// Error bodies from the store are short problem documents.
const maxErrorBodyBytes = 4 << 10

// GatewayConfig holds configuration for the storage gateway.
type GatewayConfig struct {
	BaseURL    string
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
}

// Gateway implements ports.StorageGateway against the document store's REST
// API.
type Gateway struct {
	baseURL string
	client  *http.Client
}

var _ ports.StorageGateway = (*Gateway)(nil)

// NewGateway creates a storage gateway from config.
func NewGateway(config GatewayConfig) (*Gateway, error) {
	if config.BaseURL == "" {
		return nil, errors.New("storage base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid storage base URL: %w", err)
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Gateway{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		client:  client,
	}, nil
}

// GetMetadata fetches the document's metadata record.
func (g *Gateway) GetMetadata(ctx context.Context, req ports.StorageRequest) (ports.DocumentMetadata, error) {
	resp, err := g.send(ctx, http.MethodGet, req, "documents", req.ResourceID)
	if err != nil {
		return ports.DocumentMetadata{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := g.checkStatus(resp, http.StatusOK); err != nil {
		return ports.DocumentMetadata{}, err
	}

	var meta ports.DocumentMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return ports.DocumentMetadata{}, fmt.Errorf("decode document metadata: %w", err)
	}
	return meta, nil
}

// Download opens the document's content stream. The caller owns the returned
// body and must close it.
func (g *Gateway) Download(ctx context.Context, req ports.StorageRequest) (ports.DocumentContent, error) {
	resp, err := g.send(ctx, http.MethodGet, req, "documents", req.ResourceID, "content")
	if err != nil {
		return ports.DocumentContent{}, err
	}

	if err := g.checkStatus(resp, http.StatusOK); err != nil {
		_ = resp.Body.Close()
		return ports.DocumentContent{}, err
	}

	meta := ports.DocumentMetadata{
		ID:          req.ResourceID,
		ContentType: resp.Header.Get("Content-Type"),
		SizeBytes:   resp.ContentLength,
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, perr := http.ParseTime(lm); perr == nil {
			meta.ModifiedAt = t
		}
	}

	return ports.DocumentContent{Metadata: meta, Body: resp.Body}, nil
}

// Delete removes the document.
func (g *Gateway) Delete(ctx context.Context, req ports.StorageRequest) error {
	resp, err := g.send(ctx, http.MethodDelete, req, "documents", req.ResourceID)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return g.checkStatus(resp, http.StatusOK, http.StatusNoContent)
}

func (g *Gateway) send(ctx context.Context, method string, sreq ports.StorageRequest, elems ...string) (*http.Response, error) {
	if sreq.ResourceID == "" {
		return nil, apperrors.Validation("resource id is required")
	}
	if sreq.Credential.Token == "" {
		return nil, errors.New("delegated credential is required")
	}

	target, err := url.JoinPath(g.baseURL, elems...)
	if err != nil {
		return nil, fmt.Errorf("build storage URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sreq.Credential.Token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call storage: %w", err)
	}
	return resp, nil
}

// checkStatus maps the store's replies onto the error taxonomy: 404 becomes
// NotFound, everything else unexpected surfaces with the body snippet.
func (g *Gateway) checkStatus(resp *http.Response, want ...int) error {
	for _, w := range want {
		if resp.StatusCode == w {
			return nil
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NotFound("document not found")
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return fmt.Errorf("storage status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
