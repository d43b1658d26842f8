package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	got := DSN("studio", "secret", "db", 5433, "booking", "disable")
	assert.Equal(t, "postgres://studio:secret@db:5433/booking?sslmode=disable", got)
}
