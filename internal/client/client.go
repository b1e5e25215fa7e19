// Package client calls the tools exposed by a molecule server.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/and161185/dora-molecule/internal/client/transport"
	"github.com/and161185/dora-molecule/internal/config"
	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/internal/errs"
	"github.com/and161185/dora-molecule/internal/utils"
	"github.com/and161185/dora-molecule/model"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap maps the status back to the error kinds of internal/errs.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest:
		return errs.ErrInvalidInput
	case http.StatusNotFound:
		if strings.HasPrefix(e.Message, errs.ErrUnknownTool.Error()) {
			return errs.ErrUnknownTool
		}
		return errs.ErrNotFound
	case http.StatusServiceUnavailable:
		return errs.ErrDataUnavailable
	}
	return nil
}

// Client talks to the molecule's HTTP tool surface.
type Client struct {
	config     *config.ClientConfig
	httpClient *http.Client
	realIP     string
}

// NewClient creates a client from cfg.
func NewClient(cfg *config.ClientConfig) *Client {
	return NewClientWithHTTP(cfg, NewHTTPClient(cfg))
}

func detectOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if la, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return la.IP.String()
	}
	return ""
}

// DI: ready http.Client
func NewClientWithHTTP(cfg *config.ClientConfig, hc *http.Client) *Client {
	return &Client{config: cfg, httpClient: hc, realIP: detectOutboundIP()}
}

// NewHTTPClient builds an http.Client that signs requests when a key is set.
func NewHTTPClient(cfg *config.ClientConfig) *http.Client {
	return &http.Client{
		Timeout:   time.Duration(cfg.ClientTimeout) * time.Second,
		Transport: &transport.SignRoundTripper{Base: http.DefaultTransport, Key: cfg.Key},
	}
}

// ListTools returns the tool descriptors the server offers.
func (clnt *Client) ListTools(ctx context.Context) ([]dora.Tool, error) {
	var tools []dora.Tool
	if err := clnt.do(ctx, http.MethodGet, "/tools", nil, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// CallTool invokes tool name with args and decodes the result into out.
func (clnt *Client) CallTool(ctx context.Context, name string, args any, out any) error {
	if args == nil {
		args = struct{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	if _, err = zw.Write(raw); err != nil {
		return fmt.Errorf("gzip write: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	return clnt.do(ctx, http.MethodPost, "/tools/"+name, body.Bytes(), out)
}

// DoraMetrics calls get_dora_metrics.
func (clnt *Client) DoraMetrics(ctx context.Context, service string, days int) (*model.ToolResult, error) {
	var res model.ToolResult
	err := clnt.CallTool(ctx, dora.ToolGetDoraMetrics, map[string]any{"service": service, "days": days}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Services calls list_services.
func (clnt *Client) Services(ctx context.Context) ([]string, error) {
	var res model.ServiceList
	if err := clnt.CallTool(ctx, dora.ToolListServices, nil, &res); err != nil {
		return nil, err
	}
	return res.Services, nil
}

// Deployments calls list_deployments.
func (clnt *Client) Deployments(ctx context.Context, service string, limit int, status string) (*model.DeploymentList, error) {
	var res model.DeploymentList
	args := map[string]any{"service": service, "limit": limit, "status": status}
	if err := clnt.CallTool(ctx, dora.ToolListDeployments, args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (clnt *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var (
		code int
		resp []byte
	)
	err := utils.WithRetry(ctx, func() error {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, clnt.config.ServerAddr+path, rdr)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Content-Encoding", "gzip")
		}
		if clnt.realIP != "" {
			req.Header.Set("X-Real-IP", clnt.realIP)
		}

		r, err := clnt.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer r.Body.Close()
		resp, err = io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		code = r.StatusCode
		return nil
	})
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	if code != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(resp, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(resp))
		}
		return &StatusError{Code: code, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
