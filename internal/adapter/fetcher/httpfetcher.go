package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// DefaultUserAgent используется, если в конфигурации не задан свой.
	DefaultUserAgent = "campusnews/1.0 (+https://github.com/campusnews)"
	// maxBodySize ограничивает размер читаемого ответа.
	maxBodySize = 16 << 20
)

// StatusError возвращается, когда сервер ответил кодом вне диапазона 2xx.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d for url %s", e.Code, e.URL)
}

// HTTPFetcher выполняет GET-запросы к источникам записей.
// Содержит HTTP-клиент для выполнения запросов и логгер для записи событий.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

// NewHTTPFetcher создает новый экземпляр HTTPFetcher.
// Время выполнения запроса ограничивается контекстом вызывающей стороны.
func NewHTTPFetcher(log *slog.Logger, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    http.DefaultClient,
		userAgent: userAgent,
		log:       log,
	}
}

// Fetch выполняет HTTP-запрос по указанному URL.
// Возвращает тело ответа как io.ReadCloser, которое должно быть закрыто после использования.
// Ответ с кодом вне 2xx возвращается как *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	log := f.log.With(slog.String("url", url))
	log.Debug("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, text/csv, */*;q=0.8")
	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn(
			"HTTP request failed",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to fetch url %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		log.Warn(
			"Unexpected status code",
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}
	log.Debug("Successfully fetched URL")
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodySize), resp.Body}, nil
}

// FetchBytes загружает тело ответа целиком.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}
	return data, nil
}
