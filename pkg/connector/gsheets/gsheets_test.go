package gsheets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/gsheets"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

func TestTestConnectionRequiresCredentials(t *testing.T) {
	c := gsheets.New()

	result := c.TestConnection(context.Background(), &config.ConnectionConfig{Type: "google_sheets"})
	require.False(t, result.Success)
	assert.Equal(t, "validation", result.Metadata["error_type"])
	assert.Contains(t, result.Error, "access_token")
}

func TestConnectRequiresCredentials(t *testing.T) {
	c := gsheets.New()

	cfg := &config.ConnectionConfig{Type: "google_sheets", AccessToken: "tok"}
	_, err := c.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "spreadsheet_id")
}

func TestValidateQuery(t *testing.T) {
	c := gsheets.New()

	assert.True(t, c.ValidateQuery("READ_SHEET:Sales").Valid)
	assert.True(t, c.ValidateQuery("READ_SHEET:Sales:A1:C10").Valid)
	assert.True(t, c.ValidateQuery("read_sheet:Sales").Valid)
	assert.False(t, c.ValidateQuery("").Valid)
	assert.False(t, c.ValidateQuery("READ_SHEET:").Valid)
	assert.False(t, c.ValidateQuery("READ_DOC:Sales").Valid)
	assert.False(t, c.ValidateQuery("SELECT * FROM Sales").Valid)
}

func TestCapabilities(t *testing.T) {
	caps := gsheets.Capabilities()
	assert.Equal(t, []string{"READ_SHEET"}, caps.SupportedOperations)
	assert.Positive(t, caps.MaxConnections)
}
