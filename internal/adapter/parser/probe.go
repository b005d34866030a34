package parser

import "encoding/json"

// probe извлекает одно значение из записи; пустая строка означает "нет значения".
type probe[T any] func(T) string

// firstOf перебирает пробы по порядку и возвращает первое непустое значение.
func firstOf[T any](entry T, probes ...probe[T]) string {
	for _, p := range probes {
		if v := p(entry); v != "" {
			return v
		}
	}
	return ""
}

// looseString принимает строку JSON и молча игнорирует значения других типов.
// Плагины WordPress нередко отдают false вместо отсутствующего URL.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

func (s looseString) String() string { return string(s) }
