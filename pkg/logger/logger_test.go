package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "json info", cfg: Config{Level: "info", Encoding: "json"}},
		{name: "console warn", cfg: Config{Level: "warn", Encoding: "console"}},
		{name: "empty config defaults", cfg: Config{}},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestGetIsStable(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestChildLoggers(t *testing.T) {
	assert.NotNil(t, ForConnector("csv"))
	assert.NotNil(t, ForComponent("connector_registry"))
}
