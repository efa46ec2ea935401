package apierrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithFormattedMessage(t *testing.T) {
	err := ErrTableBounds.WithFormattedMessage(60, 10)
	assert.Equal(t, "table size must be from 1x1 to 60x10", err.Error())
	assert.Equal(t, "Размер таблицы должен быть от 1x1 до 60x10", err.RuErr)

	err = ErrUnknownCommand.WithFormattedMessage("bogus")
	assert.Equal(t, "unknown command bogus", err.Error())
	assert.Equal(t, "Неизвестная команда редактора", err.RuErr)

	err = ErrInvalidURL.WithFormattedMessage()
	assert.Equal(t, "invalid URL ", err.Error())
}

func TestDefinedErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("insert table: %w", ErrTableBounds.WithFormattedMessage(60, 10))
	assert.ErrorIs(t, wrapped, ErrTableBounds)
	assert.NotErrorIs(t, wrapped, ErrInvalidURL)

	defined, ok := AsDefined(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 2006, defined.Code)
}

func TestAll_UniqueCodes(t *testing.T) {
	seen := make(map[int]bool)
	for _, e := range All() {
		assert.False(t, seen[e.Code], "duplicate code %d", e.Code)
		seen[e.Code] = true
		assert.NotEmpty(t, e.RuErr)
		assert.NotEmpty(t, http.StatusText(e.StatusCode))
	}
	assert.Equal(t, 1001, All()[0].Code)
}
