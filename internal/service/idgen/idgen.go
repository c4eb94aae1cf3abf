// Package idgen выдает ключи идемпотентности и идентификаторы транзакций.
package idgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const transactionIDPrefix = "TXN"

type Generator struct {
	now func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// NewIdempotencyKey возвращает UUIDv4.
func (g *Generator) NewIdempotencyKey() string {
	return uuid.NewString()
}

// NewTransactionID возвращает идентификатор вида TXN-<unix ms>-<8 hex>.
func (g *Generator) NewTransactionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", transactionIDPrefix, g.now().UnixMilli(), suffix)
}
