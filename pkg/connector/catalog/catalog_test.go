package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/catalog"
)

func TestDefaultRegistry(t *testing.T) {
	reg := catalog.Default()

	expected := []string{
		"api", "csv", "excel", "google_docs", "google_sheets", "mongodb",
		"mysql", "pdf", "postgres", "powerpoint", "redshift", "snowflake",
		"sqlite", "text", "web", "word",
	}
	assert.Equal(t, expected, reg.Types())

	for name, c := range reg.All() {
		assert.Equal(t, name, c.Type())

		caps := c.Capabilities()
		require.NotNil(t, caps, name)
		assert.NotEmpty(t, caps.SupportedOperations, name)
	}
}

func TestEmptyQueryInvalidEverywhere(t *testing.T) {
	for name, c := range catalog.Default().All() {
		result := c.ValidateQuery("")
		require.NotNil(t, result, name)
		assert.False(t, result.Valid, name)
		assert.NotEmpty(t, result.Error, name)
	}
}

func TestDefaultRegistriesAreIndependent(t *testing.T) {
	a := catalog.Default()
	b := catalog.Default()

	delete(a.All(), "csv")
	_, ok := b.Lookup("csv")
	assert.True(t, ok)
	assert.Equal(t, a.Len(), b.Len())
}
