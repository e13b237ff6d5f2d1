package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CodeOK: код успешного ответа у обоих провайдеров.
const CodeOK = "00"

var (
	ErrNotConfigured = errors.New("gateway not configured")
	ErrBadResponse   = errors.New("malformed gateway response")
	ErrRejected      = errors.New("gateway rejected request")
)

// Options общие для клиентов провайдеров.
type Options struct {
	BaseURL  string
	ClientID string
	APIKey   string
	Timeout  time.Duration
	HTTP     *http.Client
}

func (o Options) client() *http.Client {
	if o.HTTP != nil {
		return o.HTTP
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (o Options) configured() bool {
	return o.BaseURL != "" && o.ClientID != "" && o.APIKey != ""
}

type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// do выполняет запрос с таймаутом и разбирает {code, desc, data}.
func do(ctx context.Context, o Options, hc *http.Client, method, path string, body any) (*envelope, error) {
	if !o.configured() {
		return nil, ErrNotConfigured
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", o.ClientID)
	req.Header.Set("x-api-key", o.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrRejected, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &env, nil
}
