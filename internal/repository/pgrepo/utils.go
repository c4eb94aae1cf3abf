package pgrepo

import (
	"fmt"
	"math"
)

// rowScanner общий знаменатель pgx.Row и pgx.CollectableRow.
type rowScanner interface {
	Scan(dest ...any) error
}

// safeConvertUintToInt32 безопасно конвертирует uint в int32. В случае выхода значения за рамки диапазона
// выбрасывает ошибку.
func safeConvertUintToInt32(val uint) (int32, error) {
	if val > uint(math.MaxInt32) {
		return 0, fmt.Errorf("value is out of range: %d", val)
	}
	return int32(val), nil
}

// emptyIfNil гарантирует что в jsonb колонку не уйдет json null.
func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
