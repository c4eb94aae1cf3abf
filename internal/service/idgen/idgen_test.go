package idgen

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerator_NewTransactionID(t *testing.T) {
	g := New()
	g.now = func() time.Time { return time.UnixMilli(1700000000123) }

	id := g.NewTransactionID()
	require.Regexp(t, regexp.MustCompile(`^TXN-1700000000123-[0-9a-f]{8}$`), id)
	require.NotEqual(t, id, g.NewTransactionID())
}

func TestGenerator_NewIdempotencyKey(t *testing.T) {
	g := New()
	key := g.NewIdempotencyKey()

	parsed, err := uuid.Parse(key)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(4), parsed.Version())
	require.NotEqual(t, key, g.NewIdempotencyKey())
}
