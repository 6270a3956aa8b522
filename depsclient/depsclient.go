// Package depsclient is the client side of the optional dependency-metadata
// HTTP service (§6's OGNIBUILD_DEPS server, also served by cmd/ogni-depsd):
// resolvers consult it before falling back to their own built-in ecosystem
// logic. Modeled on dep's remote.go pattern of trying a specific lookup
// before falling back to a generic one.
package depsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/resolver"
)

// Client talks to a dependency-metadata server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client pointed at baseURL, e.g. the value of
// OGNIBUILD_DEPS.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

// requestBody and responseBody mirror cmd/ogni-depsd's wire format exactly:
// a POST with a JSON body identifying the requirement family and name,
// answered with the resolved package plus install command.
type requestBody struct {
	Family  string `json:"family"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type responseBody struct {
	Package    string   `json:"package"`
	Version    string   `json:"version,omitempty"`
	InstallCmd []string `json:"install_cmd"`
}

// Resolve asks the server for the package and install command that would
// satisfy req, implementing resolver.Resolver so a Client can sit directly
// in a resolver.Composite ahead of the built-in ecosystem resolvers.
func (c *Client) Resolve(req requirement.Requirement) (resolver.Package, bool) {
	resp, ok := c.lookup(req)
	if !ok {
		return resolver.Package{}, false
	}
	return resolver.Package{Name: resp.Package, Version: resp.Version}, true
}

func (c *Client) InstallCmd(req requirement.Requirement) ([]string, bool) {
	resp, ok := c.lookup(req)
	if !ok || len(resp.InstallCmd) == 0 {
		return nil, false
	}
	return resp.InstallCmd, true
}

func (c *Client) Name() string { return "depsd" }

func (c *Client) Explain(reqs []requirement.Requirement) string {
	return fmt.Sprintf("resolved via dependency-metadata server at %s", c.BaseURL)
}

var _ resolver.Resolver = (*Client)(nil)

func (c *Client) lookup(req requirement.Requirement) (responseBody, bool) {
	if c.BaseURL == "" {
		return responseBody{}, false
	}

	body, err := json.Marshal(requestBody{Family: string(req.Family()), Name: req.Key()})
	if err != nil {
		return responseBody{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/resolve", bytes.NewReader(body))
	if err != nil {
		return responseBody{}, false
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return responseBody{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseBody{}, false
	}

	var out responseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return responseBody{}, false
	}
	return out, true
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) timeout() time.Duration {
	t := c.client().Timeout
	if t <= 0 {
		return 15 * time.Second
	}
	return t
}

