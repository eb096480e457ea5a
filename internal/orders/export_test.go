package orders

import "time"

func SetClock(e *Engine, now func() time.Time) {
	e.now = now
}
