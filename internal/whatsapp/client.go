// Package whatsapp предоставляет клиент HTTP-шлюза WhatsApp для уведомления клиентов.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/validation"
)

// ErrNotConfigured возвращается, если адрес шлюза не задан.
var ErrNotConfigured = errors.New("whatsapp client not configured")

// Client инкапсулирует HTTP-взаимодействие со шлюзом WhatsApp.
type Client struct {
	url        string
	apiKey     string
	httpClient *retryablehttp.Client
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewClient создаёт клиент шлюза. Ключ вида "user:password" используется для Basic-аутентификации,
// любой другой передаётся как Bearer-токен.
func NewClient(url, apiKey string, logger *zap.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.HTTPClient = cleanhttp.DefaultPooledClient()
	hc.HTTPClient.Timeout = 10 * time.Second
	hc.RetryMax = 3
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.CheckRetry = checkRetry
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.Logger = leveledLogger{s: logger.Sugar()}

	return &Client{
		url:        strings.TrimRight(url, "/"),
		apiKey:     apiKey,
		httpClient: hc,
	}
}

// checkRetry повторяет сетевые ошибки и ответы 5xx. Ответ 429 не повторяется:
// задержку из Retry-After выдерживает вызывающая сторона.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Send отправляет сообщение на номер phone. Возвращает код ответа и, для 429, время ожидания.
func (c *Client) Send(ctx context.Context, phone, message string) (int, time.Duration, error) {
	if c == nil || c.url == "" {
		return 0, 0, ErrNotConfigured
	}

	base := c.url
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(sendRequest{
		To:      validation.WhatsAppPhone(phone),
		Message: message,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base, body)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		if user, password, ok := strings.Cut(c.apiKey, ":"); ok {
			req.SetBasicAuth(user, password)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp.StatusCode, 0, nil
}

// leveledLogger направляет журнал retryablehttp в zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) { l.s.Errorw(msg, keysAndValues...) }
func (l leveledLogger) Info(msg string, keysAndValues ...interface{})  { l.s.Infow(msg, keysAndValues...) }
func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) { l.s.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Warn(msg string, keysAndValues ...interface{})  { l.s.Warnw(msg, keysAndValues...) }
