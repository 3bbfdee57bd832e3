package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
)

// apiClient talks to a running lovable-ctl server.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	base = strings.TrimRight(base, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{base: base, http: http.DefaultClient}
}

func (c *apiClient) request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ExitSandboxUnavailable, "cannot reach server at "+c.base, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp, nil
}

// do sends body as JSON and decodes the JSON response into out.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// stream posts body and calls fn for each server-sent event.
func (c *apiClient) stream(ctx context.Context, path string, body any, fn func(progress.Event)) error {
	resp, err := c.request(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		e, err := progress.Decode(line)
		if err != nil {
			return err
		}
		fn(e)
	}
	return sc.Err()
}

// responseError turns an error response into an AppError whose exit code
// follows the HTTP status.
func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
		if body.Error == "" {
			body.Error = resp.Status
		}
	}

	code := errors.ExitGeneralError
	switch resp.StatusCode {
	case http.StatusBadRequest:
		code = errors.ExitValidation
	case http.StatusNotFound:
		code = errors.ExitSandboxNotFound
	case http.StatusConflict:
		code = errors.ExitRunInProgress
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		code = errors.ExitSandboxUnavailable
	}
	return errors.New(code, body.Error)
}
