package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// doJSON performs an HTTP request with an optional JSON body and decodes the
// JSON response into out (when out is non-nil). Non-2xx responses are
// returned as errors carrying the server's error message.
func doJSON(ctx context.Context, method, rawURL string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, serverError(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// serverError extracts the "error" field from a JSON error body, falling
// back to the raw body text.
func serverError(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

// boardURL builds a /v1/boards/{channel}/{op} URL with query values.
func boardURL(base, channel, op string, q url.Values) string {
	u := strings.TrimRight(base, "/") + "/v1/boards/" + url.PathEscape(channel) + "/" + op
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
