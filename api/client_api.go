// Package api - API-Methoden des Clients.
// Dieses Modul enthaelt alle Abfragen gegen den Introspektions-Server.

package api

import (
	"context"
	"net/http"
	"net/url"
)

// Kinds lists the primitive kinds the server can select for.
func (c *Client) Kinds(ctx context.Context) (*KindsResponse, error) {
	var kr KindsResponse
	if err := c.do(ctx, http.MethodGet, "/api/kinds", nil, &kr); err != nil {
		return nil, err
	}
	return &kr, nil
}

// Implementations lists the catalog entries of one kind in registration order.
func (c *Client) Implementations(ctx context.Context, kind string) (*ImplementationsResponse, error) {
	var ir ImplementationsResponse
	if err := c.do(ctx, http.MethodGet, "/api/kinds/"+url.PathEscape(kind)+"/implementations", nil, &ir); err != nil {
		return nil, err
	}
	return &ir, nil
}

// Select returns the ranked dispatch plans for one primitive instance.
func (c *Client) Select(ctx context.Context, req *SelectRequest) (*SelectResponse, error) {
	var resp SelectResponse
	if err := c.do(ctx, http.MethodPost, "/api/select", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectBatch selects for several primitives at once. The first failing
// primitive fails the whole batch.
func (c *Client) SelectBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	var resp BatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/select/batch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Explain reports how every catalog entry was judged for a primitive instance.
func (c *Client) Explain(ctx context.Context, req *SelectRequest) (*ExplainResponse, error) {
	var resp ExplainResponse
	if err := c.do(ctx, http.MethodPost, "/api/explain", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tuning lists the tuning records loaded by the server.
func (c *Client) Tuning(ctx context.Context) (*TuningResponse, error) {
	var resp TuningResponse
	if err := c.do(ctx, http.MethodGet, "/api/tuning", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Heartbeat checks if the server has started and is responsive; if yes, it
// returns nil, otherwise an error.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.do(ctx, http.MethodHead, "/", nil, nil); err != nil {
		return err
	}
	return nil
}

// Version returns the kselect server version as a string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version struct {
		Version string `json:"version"`
	}

	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &version); err != nil {
		return "", err
	}

	return version.Version, nil
}
