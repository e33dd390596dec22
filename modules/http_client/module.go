package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/param"
	"github.com/vk/cmdgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Parameters read and written by OnRunHTTPRequest. The response parameters
// are optional: they are only filled when the definitions declare them.
const (
	ParamURL    = "http_url"
	ParamMethod = "http_method"
	ParamStatus = "http_status"
	ParamBody   = "http_body"
)

// client is shared by all requests to reuse TCP connections.
var client = &http.Client{Timeout: 30 * time.Second}

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunHTTPRequest performs a single HTTP request. Responses with a status of
// 400 or above fail the command.
func OnRunHTTPRequest(ctx context.Context, rt *registry.Runtime) error {
	url := stringValue(rt.Values, ParamURL)
	if url == "" {
		return fmt.Errorf("parameter '%s' must be set", ParamURL)
	}
	method := stringValue(rt.Values, ParamMethod)
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", method, "url", url)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	reg := rt.Values.Registry()
	if _, ok := reg.Lookup(ParamStatus); ok {
		if err := rt.Values.Set(ctx, ParamStatus, cty.NumberIntVal(int64(resp.StatusCode))); err != nil {
			return err
		}
	}
	if _, ok := reg.Lookup(ParamBody); ok {
		if err := rt.Values.Set(ctx, ParamBody, cty.StringVal(string(body))); err != nil {
			return err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s returned %s", method, url, resp.Status)
	}
	return nil
}

func stringValue(values *param.Store, name string) string {
	v, ok := values.Get(name)
	if !ok || !v.Type().Equals(cty.String) {
		return ""
	}
	return v.AsString()
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunHTTPRequest", &registry.RegisteredHandler{
		Fn: OnRunHTTPRequest,
		Params: map[string]cty.Type{
			ParamURL:    cty.String,
			ParamMethod: cty.String,
		},
	})
}
