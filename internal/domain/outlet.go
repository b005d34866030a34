package domain

import "strings"

// Platform определяет формат API, через который отдает записи издание.
type Platform string

const (
	PlatformWordPress       Platform = "wordpress"
	PlatformLegacyWordPress Platform = "legacy-wordpress"
	PlatformBlogspot        Platform = "blogspot"
)

// ParsePlatform преобразует пометку из реестра в Platform.
// Неизвестные и пустые пометки считаются стандартным WordPress.
func ParsePlatform(note string) Platform {
	n := strings.ToLower(strings.TrimSpace(note))
	switch {
	case n == "blogspot" || n == "blogger":
		return PlatformBlogspot
	case strings.Contains(n, "old") && strings.Contains(n, "wordpress"):
		return PlatformLegacyWordPress
	case n == "legacy-wordpress":
		return PlatformLegacyWordPress
	default:
		return PlatformWordPress
	}
}

// Outlet представляет одно студенческое издание и его источник записей.
type Outlet struct {
	ID         string   `json:"id,omitempty"`
	Province   string   `json:"province"`
	City       string   `json:"city"`
	University string   `json:"university"`
	Faculty    string   `json:"faculty"`
	Name       string   `json:"name"`
	Link       string   `json:"link"`
	Platform   Platform `json:"platform"`
}

// Key возвращает стабильный идентификатор издания: ID, если он задан в реестре, иначе имя.
func (o Outlet) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return o.Name
}

// BaseURL возвращает ссылку на издание без завершающего слэша.
func (o Outlet) BaseURL() string {
	return strings.TrimSuffix(o.Link, "/")
}
