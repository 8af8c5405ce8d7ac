package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 30 * time.Second
)

// Config — настройки одной интеграции.
type Config struct {
	// BaseURL — корень API (без завершающего слэша).
	BaseURL string `mapstructure:"url" yaml:"url"`

	// ConnectTimeout — таймаут установки соединения (default: 5s).
	ConnectTimeout time.Duration `mapstructure:"connectTimeout" yaml:"connectTimeout"`

	// ReadTimeout — таймаут ожидания ответа (default: 30s).
	ReadTimeout time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`

	// RateLimit — запросов в секунду; 0 — без ограничения.
	RateLimit float64 `mapstructure:"rateLimit" yaml:"rateLimit"`

	// Burst — размер всплеска для rate limiter (default: 1).
	Burst int `mapstructure:"burst" yaml:"burst"`

	// Token — статический bearer-токен (опционально).
	Token string `mapstructure:"token" yaml:"token"`
}

// REST — общий транспорт клиентов.
type REST struct {
	system     string
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewREST создаёт транспорт для системы system.
func NewREST(system string, cfg Config, logger *slog.Logger) *REST {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = defaultConnectTimeout
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = defaultReadTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &REST{
		system:  system,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   connect + read,
		},
		limiter: limiter,
		logger:  logger.With("system", system),
	}
}

// System возвращает имя системы (для логов и метрик).
func (r *REST) System() string { return r.system }

// Get выполняет GET и декодирует ответ в out (если out != nil).
func (r *REST) Get(ctx context.Context, path string, out any) error {
	return r.Do(ctx, http.MethodGet, path, nil, out)
}

// Post выполняет POST.
func (r *REST) Post(ctx context.Context, path string, body, out any) error {
	return r.Do(ctx, http.MethodPost, path, body, out)
}

// Put выполняет PUT.
func (r *REST) Put(ctx context.Context, path string, body, out any) error {
	return r.Do(ctx, http.MethodPut, path, body, out)
}

// Patch выполняет PATCH.
func (r *REST) Patch(ctx context.Context, path string, body, out any) error {
	return r.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete выполняет DELETE.
func (r *REST) Delete(ctx context.Context, path string) error {
	return r.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do выполняет запрос. Тело сериализуется в JSON.
// out может быть *[]byte — тогда тело ответа возвращается как есть.
func (r *REST) Do(ctx context.Context, method, path string, body, out any) error {
	_, err := r.DoWithHeaders(ctx, method, path, body, out)
	return err
}

// DoWithHeaders — как Do, но возвращает заголовки ответа.
func (r *REST) DoWithHeaders(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit wait: %w", r.system, err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal body: %w", r.system, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", r.system, err)
	}
	req.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s %s: %v", ErrRequest, r.system, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %v", ErrRequest, r.system, err)
	}

	r.logger.Debug("http call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			System:     r.system,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
		// Тело может быть не JSON — тогда Problem остаётся пустым
		_ = json.Unmarshal(respBody, &apiErr.Problem)
		return resp.Header, apiErr
	}

	if out == nil || len(respBody) == 0 || resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = respBody
		return resp.Header, nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.Header, fmt.Errorf("%s: decode response: %w", r.system, err)
	}
	return resp.Header, nil
}
