package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		ok     bool
		verb   string
		target string
		arg    string
	}{
		{name: "simple", query: "READ_CSV:orders", ok: true, verb: "READ_CSV", target: "orders"},
		{name: "lowercase verb", query: "read_csv:orders", ok: true, verb: "READ_CSV", target: "orders"},
		{name: "with argument", query: "READ_SHEET:Sheet1:A1:C10", ok: true, verb: "READ_SHEET", target: "Sheet1", arg: "A1:C10"},
		{name: "http verb", query: "GET:/users", ok: true, verb: "GET", target: "/users"},
		{name: "surrounding space", query: "  SCRAPE: title  ", ok: true, verb: "SCRAPE", target: "title"},
		{name: "empty", query: "", ok: false},
		{name: "no separator", query: "SELECT 1", ok: false},
		{name: "leading colon", query: ":orders", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := ParseCommand(tt.query)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.verb, cmd.Verb)
			assert.Equal(t, tt.target, cmd.Target)
			assert.Equal(t, tt.arg, cmd.Arg)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	t.Run("accepts declared verb", func(t *testing.T) {
		result := ValidateCommand("READ_CSV:orders", "READ_CSV")
		assert.True(t, result.Valid)
		assert.Empty(t, result.Error)
	})

	t.Run("verb matching is case-insensitive", func(t *testing.T) {
		assert.True(t, ValidateCommand("read_csv:orders", "READ_CSV").Valid)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		result := ValidateCommand("", "READ_CSV")
		require.False(t, result.Valid)
		assert.Contains(t, result.Error, "empty")
	})

	t.Run("rejects undeclared verb", func(t *testing.T) {
		result := ValidateCommand("DELETE:orders", "READ_CSV")
		require.False(t, result.Valid)
		assert.Contains(t, result.Error, "DELETE")
	})

	t.Run("rejects missing target", func(t *testing.T) {
		result := ValidateCommand("READ_CSV:", "READ_CSV")
		require.False(t, result.Valid)
		assert.Contains(t, result.Error, "target")
	})

	t.Run("rejects free-form text", func(t *testing.T) {
		assert.False(t, ValidateCommand("just some words", "READ_CSV").Valid)
	})
}
