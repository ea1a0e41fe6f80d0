package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/connector/csvfile"
	"github.com/bifrostdata/bifrost/pkg/connector/registry"
	"github.com/bifrostdata/bifrost/pkg/connector/textfile"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

func TestRegisterAndLookup(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(csvfile.New()))
	require.NoError(t, r.Register(textfile.New()))

	c, ok := r.Lookup("csv")
	require.True(t, ok)
	assert.Equal(t, "csv", c.Type())

	_, ok = r.Lookup("oracle")
	assert.False(t, ok)

	assert.Equal(t, 2, r.Len())
}

func TestRegisterDuplicate(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(csvfile.New()))

	err := r.Register(csvfile.New())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestMustLookupUnknownType(t *testing.T) {
	r := registry.New()

	_, err := r.MustLookup("nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Contains(t, err.Error(), "nope")
}

func TestTypesSorted(t *testing.T) {
	r := registry.New()
	r.MustRegister(textfile.New())
	r.MustRegister(csvfile.New())

	assert.Equal(t, []string{"csv", "text"}, r.Types())
}

func TestAllReturnsCopy(t *testing.T) {
	r := registry.New()
	r.MustRegister(csvfile.New())

	all := r.All()
	delete(all, "csv")

	_, ok := r.Lookup("csv")
	assert.True(t, ok, "mutating the returned map must not affect the registry")
}
