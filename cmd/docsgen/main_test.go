package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, generate(&buf))

	out := buf.String()
	assert.Contains(t, out, "# Перечень кодов ошибок")
	assert.Contains(t, out, "**1001**")
	assert.Contains(t, out, "410 *Gone*")
	assert.Contains(t, out, "## Команды редактора")
	assert.Contains(t, out, "- `insert-table`")
}
