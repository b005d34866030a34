package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campusnews/internal/adapter/fetcher"
	"campusnews/internal/adapter/parser"
	"campusnews/internal/domain"
)

// HTTPGetter загружает тело ответа по URL.
type HTTPGetter interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ScriptLoader получает данные через JSONP.
type ScriptLoader interface {
	Load(ctx context.Context, buildURL func(callback string) string) (json.RawMessage, error)
}

// PostParser преобразует ответ источника в записи.
type PostParser interface {
	Parse(platform domain.Platform, payload []byte, o domain.Outlet) ([]domain.Post, parser.Report, error)
}

// Options задает параметры загрузки одного издания.
type Options struct {
	Timeout        time.Duration
	LookbackMonths int
	MaxResults     int
}

// Fetcher загружает записи одного издания и всегда возвращает ровно один FetchOutcome.
// Ошибки любого этапа не выходят за его пределы, а записываются в результат.
type Fetcher struct {
	http    HTTPGetter
	scripts ScriptLoader
	parser  PostParser
	opts    Options
	now     func() time.Time
	log     *slog.Logger
}

func NewFetcher(http HTTPGetter, scripts ScriptLoader, p PostParser, opts Options, log *slog.Logger) *Fetcher {
	if opts.LookbackMonths <= 0 {
		opts.LookbackMonths = 1
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	return &Fetcher{
		http:    http,
		scripts: scripts,
		parser:  p,
		opts:    opts,
		now:     time.Now,
		log:     log,
	}
}

// FetchOutlet загружает и разбирает записи издания o.
func (f *Fetcher) FetchOutlet(ctx context.Context, o domain.Outlet) (posts []domain.Post, outcome domain.FetchOutcome) {
	start := time.Now()
	log := f.log.With(
		slog.String("component", "source-fetcher"),
		slog.String("outlet", o.Name),
		slog.String("platform", string(o.Platform)),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Outlet fetch panicked", slog.Any("panic", r))
			posts, outcome = nil, failure(o, fmt.Errorf("internal error: %v", r))
		}
	}()
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}
	urls := URLBuilder{MaxResults: f.opts.MaxResults, After: Cutoff(f.now(), f.opts.LookbackMonths)}

	var (
		report parser.Report
		err    error
	)
	if o.Platform == domain.PlatformBlogspot {
		posts, report, err = f.fetchBlogspot(ctx, o, urls, log)
	} else {
		posts, report, err = f.fetchWordPress(ctx, o, urls, log)
	}
	if err != nil {
		log.Error("Outlet fetch failed",
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, failure(o, err)
	}
	log.Info("Outlet fetched",
		slog.Int("count", len(posts)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", time.Since(start)),
	)
	return posts, domain.FetchOutcome{
		Outlet:  o,
		Count:   len(posts),
		Skipped: len(report.Skipped),
		Status:  domain.StatusSuccess,
	}
}

func (f *Fetcher) fetchWordPress(ctx context.Context, o domain.Outlet, urls URLBuilder, log *slog.Logger) ([]domain.Post, parser.Report, error) {
	body, err := f.http.FetchBytes(ctx, urls.URL(o))
	if err != nil {
		return nil, parser.Report{}, err
	}
	return f.parse(o, body, log)
}

// fetchBlogspot сначала пробует прямой JSON, а при любой ошибке переходит на JSONP.
func (f *Fetcher) fetchBlogspot(ctx context.Context, o domain.Outlet, urls URLBuilder, log *slog.Logger) ([]domain.Post, parser.Report, error) {
	body, err := f.http.FetchBytes(ctx, urls.BlogspotJSONURL(o))
	if err == nil {
		posts, report, perr := f.parse(o, body, log)
		if perr == nil {
			return posts, report, nil
		}
		err = perr
	}
	if ctx.Err() != nil {
		return nil, parser.Report{}, err
	}
	log.Debug("JSON method failed, trying JSONP", slog.Any("error", err))
	payload, err := f.scripts.Load(ctx, func(callback string) string {
		return urls.BlogspotScriptURL(o, callback)
	})
	if err != nil {
		return nil, parser.Report{}, err
	}
	return f.parse(o, payload, log)
}

func (f *Fetcher) parse(o domain.Outlet, payload []byte, log *slog.Logger) ([]domain.Post, parser.Report, error) {
	posts, report, err := f.parser.Parse(o.Platform, payload, o)
	if errors.Is(err, parser.ErrMalformedPayload) {
		log.Warn("Unexpected payload shape, treating as empty", slog.Any("error", err))
		return []domain.Post{}, report, nil
	}
	return posts, report, err
}

func failure(o domain.Outlet, err error) domain.FetchOutcome {
	return domain.FetchOutcome{
		Outlet: o,
		Count:  0,
		Status: domain.StatusError,
		Error:  Describe(err),
	}
}

// Describe превращает ошибку загрузки в короткое сообщение для статистики.
func Describe(err error) string {
	var statusErr *fetcher.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("HTTP %d", statusErr.Code)
	case errors.Is(err, fetcher.ErrJSONPTimeout):
		return fetcher.ErrJSONPTimeout.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "request timeout"
	case errors.Is(err, fetcher.ErrJSONPFailed):
		return fetcher.ErrJSONPFailed.Error()
	default:
		return err.Error()
	}
}
