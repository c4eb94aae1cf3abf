package service

import (
	"math/rand/v2"
	"time"
)

const backoffSpread = 0.15

// backoff линейная пауза перед повтором attempt с разбросом ±15%, чтобы встречные переводы, упавшие на одной
// блокировке, не повторялись синхронно.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	linear := float64(base) * float64(attempt)
	factor := 1 - backoffSpread + rand.Float64()*2*backoffSpread // nolint:gosec
	return time.Duration(linear * factor)
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
