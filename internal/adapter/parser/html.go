package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// ExcerptLimit - максимальная длина анонса в символах.
	ExcerptLimit = 150
	// FallbackTitle подставляется, когда у записи нет заголовка.
	FallbackTitle = "No Title"
	// EllipsisMarker заменяет закодированное многоточие в анонсах WordPress.
	EllipsisMarker = " […]"
)

// inlineTags не разрывают слова при удалении разметки.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "cite": true, "code": true, "em": true,
	"font": true, "i": true, "mark": true, "q": true, "s": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true, "u": true,
}

// StripHTML возвращает текстовое содержимое HTML-фрагмента.
// Содержимое script и style отбрасывается, сущности декодируются, пробелы схлопываются.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	rawDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if rawDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawText(name) {
				rawDepth++
			}
			if !inlineTags[string(name)] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawText(name) && rawDepth > 0 {
				rawDepth--
			}
			if !inlineTags[string(name)] {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func isRawText(name []byte) bool {
	return string(name) == "script" || string(name) == "style"
}

// ExtractImage возвращает src первого тега img, который не указывает на .gif.
// GIF-заглушки (счетчики, спиннеры) пропускаются, поиск продолжается до следующего img.
func ExtractImage(s string) string {
	if s == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "src" {
					if src := strings.TrimSpace(string(val)); src != "" && !isGIF(src) {
						return src
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func isGIF(src string) bool {
	return strings.HasSuffix(strings.ToLower(src), ".gif")
}

// Truncate обрезает строку до n символов без учета границ слов.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
