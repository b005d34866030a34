package aggregator

import "math"

// revealGate решает, когда частичные результаты можно показывать.
// Первое раскрытие происходит, когда завершено не меньше ceil(total*fraction) изданий
// и завершились все обязательные издания. Дальше раскрытие происходит на каждом завершении.
type revealGate struct {
	need      int
	pending   map[string]struct{}
	completed int
	revealed  bool
}

func newRevealGate(total int, fraction float64, mustHave []string) *revealGate {
	fraction = math.Max(0, math.Min(1, fraction))
	need := int(math.Ceil(float64(total)*fraction - 1e-9))
	pending := make(map[string]struct{}, len(mustHave))
	for _, name := range mustHave {
		pending[name] = struct{}{}
	}
	return &revealGate{need: need, pending: pending}
}

// complete учитывает завершение издания name и сообщает, нужно ли раскрытие.
func (g *revealGate) complete(name string) bool {
	g.completed++
	delete(g.pending, name)
	if g.revealed {
		return true
	}
	if g.completed >= g.need && len(g.pending) == 0 {
		g.revealed = true
		return true
	}
	return false
}
