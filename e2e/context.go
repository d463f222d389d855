// Package e2e runs black-box scenarios against a live pedcare server.
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries per-scenario HTTP state.
type TestContext struct {
	BaseURL    string
	OwnerToken string

	client       *http.Client
	token        string
	lastStatus   int
	lastResponse map[string]any
}

func NewTestContext(baseURL, ownerToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		OwnerToken: ownerToken,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears state between scenarios.
func (tc *TestContext) Reset() {
	tc.token = ""
	tc.lastStatus = 0
	tc.lastResponse = nil
}

func (tc *TestContext) SetAccessToken(token string) { tc.token = token }
func (tc *TestContext) GetOwnerToken() string       { return tc.OwnerToken }

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, headers)
}

func (tc *TestContext) POST(path string) error {
	return tc.do(http.MethodPost, path, nil)
}

func (tc *TestContext) do(method, path string, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastResponse = nil
	if len(body) > 0 {
		if err := json.Unmarshal(body, &tc.lastResponse); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int { return tc.lastStatus }

// GetResponseField resolves a dotted path ("summary.total_events") in the
// last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any = tc.lastResponse
	for part := range strings.SplitSeq(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}
