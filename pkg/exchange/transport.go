package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bluefin-exchange/bluefin-go/params"
)

// transport wraps the HTTP client with the exchange's header contract:
// every authenticated call carries the bearer token and the wallet
// address. There is no retry; failures are whatever the transport
// surfaces, and callers implement their own backoff if they want one.
type transport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger

	mu            sync.RWMutex
	token         string
	walletAddress string
}

func newTransport(cfg params.Network, walletAddress string, httpClient *http.Client, log *zap.Logger) *transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &transport{
		baseURL:       cfg.APIURL,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(limit, 1),
		log:           log,
		walletAddress: walletAddress,
	}
}

func (t *transport) setToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

func (t *transport) authToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *transport) get(ctx context.Context, path string, query url.Values, authed bool) (*Envelope, error) {
	return t.do(ctx, http.MethodGet, path, query, nil, authed)
}

func (t *transport) post(ctx context.Context, path string, body any, authed bool) (*Envelope, error) {
	return t.do(ctx, http.MethodPost, path, nil, body, authed)
}

func (t *transport) del(ctx context.Context, path string, body any, authed bool) (*Envelope, error) {
	return t.do(ctx, http.MethodDelete, path, nil, body, authed)
}

// do executes one request/response round trip and folds the result into
// the uniform envelope. Transport-level failures return an error;
// application-level rejections return Ok=false.
func (t *transport) do(ctx context.Context, method, path string, query url.Values, body any, authed bool) (*Envelope, error) {
	token := t.authToken()
	if authed && token == "" {
		return nil, ErrNotAuthenticated
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := t.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-wallet-address", t.walletAddress)
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	env := &Envelope{
		Ok:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Data:   raw,
	}

	if !env.Ok {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err == nil {
			env.Message = apiErr.Message
			env.Code = apiErr.Code
			if apiErr.Error.Message != "" {
				env.Message = apiErr.Error.Message
				env.Code = apiErr.Error.Code
			}
		}
		if env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}

		// The engine invalidates bearer tokens server-side; drop ours so
		// the next authenticated call fails fast until re-auth.
		if resp.StatusCode == http.StatusUnauthorized {
			t.setToken("")
		}

		t.log.Debug("exchange call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", env.Message))
	}

	return env, nil
}
