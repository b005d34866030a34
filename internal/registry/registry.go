package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"campusnews/internal/domain"
)

// ErrRegistryLoad возвращается, когда реестр изданий не удалось получить или разобрать.
// Без реестра прогон агрегации невозможен.
var ErrRegistryLoad = errors.New("failed to load outlet registry")

type column int

const (
	colID column = iota
	colProvince
	colCity
	colUniversity
	colFaculty
	colName
	colLink
	colNote
)

// headerAliases сопоставляет нормализованные заголовки колонкам реестра.
var headerAliases = map[string]column{
	"id":          colID,
	"province":    colProvince,
	"provinsi":    colProvince,
	"city":        colCity,
	"kota":        colCity,
	"university":  colUniversity,
	"univ":        colUniversity,
	"universitas": colUniversity,
	"faculty":     colFaculty,
	"fakultas":    colFaculty,
	"name":        colName,
	"lpmname":     colName,
	"outlet":      colName,
	"link":        colLink,
	"url":         colLink,
	"feed":        colLink,
	"note":        colNote,
	"platform":    colNote,
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// Parse читает реестр изданий в формате CSV с заголовком.
// Строки без имени или ссылки отбрасываются, повторное имя издания игнорируется.
func Parse(r io.Reader) ([]domain.Outlet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("registry is empty: %w", err)
		}
		return nil, fmt.Errorf("failed to read registry header: %w", err)
	}
	index := make(map[column]int)
	for i, h := range header {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	if _, ok := index[colName]; !ok {
		return nil, fmt.Errorf("registry header has no outlet name column")
	}
	if _, ok := index[colLink]; !ok {
		return nil, fmt.Errorf("registry header has no link column")
	}

	var outlets []domain.Outlet
	seen := make(map[string]struct{})
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read registry row: %w", err)
		}
		cell := func(c column) string {
			i, ok := index[c]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		o := domain.Outlet{
			ID:         cell(colID),
			Province:   cell(colProvince),
			City:       cell(colCity),
			University: cell(colUniversity),
			Faculty:    cell(colFaculty),
			Name:       cell(colName),
			Link:       cell(colLink),
			Platform:   domain.ParsePlatform(cell(colNote)),
		}
		if o.Name == "" || o.Link == "" {
			continue
		}
		if _, dup := seen[o.Name]; dup {
			continue
		}
		seen[o.Name] = struct{}{}
		outlets = append(outlets, o)
	}
	return outlets, nil
}

// BytesGetter загружает удаленный реестр.
type BytesGetter interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Loader загружает реестр из файла или по http(s) ссылке.
type Loader struct {
	Source string
	http   BytesGetter
	log    *slog.Logger
}

func NewLoader(source string, http BytesGetter, log *slog.Logger) *Loader {
	return &Loader{
		Source: source,
		http:   http,
		log:    log,
	}
}

// Load возвращает упорядоченный список изданий. Любая ошибка оборачивает ErrRegistryLoad.
func (l *Loader) Load(ctx context.Context) ([]domain.Outlet, error) {
	log := l.log.With(
		slog.String("component", "registry"),
		slog.String("op", "Load"),
		slog.String("source", l.Source),
	)
	data, err := l.read(ctx)
	if err != nil {
		log.Error("Failed to read registry", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrRegistryLoad, err)
	}
	outlets, err := Parse(bytes.NewReader(data))
	if err != nil {
		log.Error("Failed to parse registry", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrRegistryLoad, err)
	}
	log.Info("Registry loaded", slog.Int("count", len(outlets)))
	return outlets, nil
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(l.Source, "http://") || strings.HasPrefix(l.Source, "https://") {
		if l.http == nil {
			return nil, fmt.Errorf("no http client configured for %s", l.Source)
		}
		return l.http.FetchBytes(ctx, l.Source)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", l.Source, err)
	}
	return data, nil
}
