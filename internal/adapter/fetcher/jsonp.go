package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultJSONPTimeout = 10 * time.Second

var (
	ErrJSONPTimeout    = errors.New("JSONP request timeout")
	ErrJSONPFailed     = errors.New("JSONP request failed")
	ErrJSONPNoCallback = errors.New("JSONP callback not invoked")
)

// ScriptSource загружает тело скрипта по URL.
type ScriptSource interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// JSONPLoader получает данные через ответ вида callback({...}).
// На время запроса регистрируется уникальный callback; регистрация и запрос
// освобождаются при любом исходе: успехе, ошибке загрузки или таймауте.
type JSONPLoader struct {
	scripts ScriptSource
	timeout time.Duration
	log     *slog.Logger

	mu        sync.Mutex
	callbacks map[string]chan json.RawMessage
}

func NewJSONPLoader(scripts ScriptSource, timeout time.Duration, log *slog.Logger) *JSONPLoader {
	if timeout <= 0 {
		timeout = DefaultJSONPTimeout
	}
	return &JSONPLoader{
		scripts:   scripts,
		timeout:   timeout,
		log:       log,
		callbacks: make(map[string]chan json.RawMessage),
	}
}

// Load регистрирует callback, загружает скрипт по адресу buildURL(callback) и ждет,
// пока скрипт вызовет callback с данными.
func (l *JSONPLoader) Load(ctx context.Context, buildURL func(callback string) string) (json.RawMessage, error) {
	name := callbackName()
	delivered := l.bind(name)
	defer l.unbind(name)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	url := buildURL(name)
	loaded := make(chan error, 1)
	go func() {
		loaded <- l.inject(ctx, url)
	}()

	select {
	case payload := <-delivered:
		return payload, nil
	case err := <-loaded:
		if err == nil {
			select {
			case payload := <-delivered:
				return payload, nil
			default:
				return nil, ErrJSONPNoCallback
			}
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrJSONPTimeout
		}
		return nil, fmt.Errorf("%w: %w", ErrJSONPFailed, err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrJSONPTimeout
		}
		return nil, ctx.Err()
	}
}

// Pending возвращает число зарегистрированных callback'ов.
func (l *JSONPLoader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callbacks)
}

func (l *JSONPLoader) bind(name string) chan json.RawMessage {
	ch := make(chan json.RawMessage, 1)
	l.mu.Lock()
	l.callbacks[name] = ch
	l.mu.Unlock()
	return ch
}

func (l *JSONPLoader) unbind(name string) {
	l.mu.Lock()
	delete(l.callbacks, name)
	l.mu.Unlock()
}

// inject загружает скрипт и "исполняет" его: находит вызов callback'а и передает ему данные.
func (l *JSONPLoader) inject(ctx context.Context, url string) error {
	script, err := l.scripts.FetchBytes(ctx, url)
	if err != nil {
		return err
	}
	name, payload, err := unwrapCallback(script)
	if err != nil {
		return err
	}
	if !l.dispatch(name, payload) {
		l.log.Warn("JSONP script invoked unknown callback", slog.String("callback", name))
		return ErrJSONPNoCallback
	}
	return nil
}

func (l *JSONPLoader) dispatch(name string, payload json.RawMessage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.callbacks[name]
	if !ok {
		return false
	}
	select {
	case ch <- payload:
	default:
	}
	return true
}

var callbackCall = regexp.MustCompile(`^(?:\s*//[^\n]*\n)*\s*([A-Za-z_$][\w$.]*)\s*\(`)

// unwrapCallback разбирает скрипт вида "// comment\nname({...});".
func unwrapCallback(script []byte) (string, json.RawMessage, error) {
	m := callbackCall.FindSubmatchIndex(script)
	if m == nil {
		return "", nil, fmt.Errorf("%w: script does not call a function", ErrJSONPNoCallback)
	}
	name := string(script[m[2]:m[3]])
	end := bytes.LastIndexByte(script, ')')
	if end < m[1] {
		return "", nil, fmt.Errorf("unterminated callback call %s", name)
	}
	payload := bytes.TrimSpace(script[m[1]:end])
	if !json.Valid(payload) {
		return "", nil, fmt.Errorf("callback %s received invalid JSON", name)
	}
	return name, json.RawMessage(payload), nil
}

func callbackName() string {
	return "blogspotCallback_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
