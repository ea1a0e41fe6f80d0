package restapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultFromJSONObjectArray(t *testing.T) {
	body := []byte(`[{"id":1,"name":"alpha"},{"id":2,"email":"b@x.io"}]`)

	result, err := resultFromJSON("GET:/users", body)
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "id", "name"}, result.Columns)
	require.Equal(t, 2, result.RowCount)

	// Missing keys are nil in their row.
	assert.Equal(t, []any{nil, int64(1), "alpha"}, result.Rows[0])
	assert.Equal(t, []any{"b@x.io", int64(2), nil}, result.Rows[1])
}

func TestResultFromJSONEnvelope(t *testing.T) {
	body := []byte(`{"data":[{"id":7}],"total":1}`)

	result, err := resultFromJSON("GET:/users", body)
	require.NoError(t, err)

	assert.Equal(t, []string{"id"}, result.Columns)
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, int64(7), result.Rows[0][0])
}

func TestResultFromJSONSingleObject(t *testing.T) {
	body := []byte(`{"name":"alpha","score":9.5}`)

	result, err := resultFromJSON("GET:/me", body)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "score"}, result.Columns)
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, []any{"alpha", 9.5}, result.Rows[0])
}

func TestResultFromJSONScalarArray(t *testing.T) {
	result, err := resultFromJSON("GET:/tags", []byte(`["a","b"]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"value"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "a", result.Rows[0][0])
}

func TestResultFromJSONScalar(t *testing.T) {
	result, err := resultFromJSON("GET:/count", []byte(`42`))
	require.NoError(t, err)

	assert.Equal(t, []string{"value"}, result.Columns)
	assert.Equal(t, int64(42), result.Rows[0][0])
}

func TestResultFromJSONNestedValues(t *testing.T) {
	body := []byte(`[{"id":1,"address":{"city":"Oslo"},"tags":["a","b"]}]`)

	result, err := resultFromJSON("GET:/users", body)
	require.NoError(t, err)

	require.Equal(t, 1, result.RowCount)
	row := result.Rows[0]

	// Columns sort as address, id, tags; nested values come back as
	// compact JSON strings.
	assert.JSONEq(t, `{"city":"Oslo"}`, row[0].(string))
	assert.Equal(t, int64(1), row[1])
	assert.JSONEq(t, `["a","b"]`, row[2].(string))
}

func TestResultFromJSONLargeIntegersSurvive(t *testing.T) {
	result, err := resultFromJSON("GET:/ids", []byte(`[{"id":9007199254740993}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), result.Rows[0][0])
}

func TestResultFromJSONInvalidBody(t *testing.T) {
	_, err := resultFromJSON("GET:/users", []byte(`not json`))
	require.Error(t, err)
}

func TestJoinURL(t *testing.T) {
	base := "https://api.example.com/v2"

	assert.Equal(t, base, joinURL(base, ""))
	assert.Equal(t, base, joinURL(base, "/"))
	assert.Equal(t, base+"/users", joinURL(base, "/users"))
	assert.Equal(t, base+"/users", joinURL(base, "users"))
	assert.Equal(t, base+"/users/7/orders", joinURL(base, "users/7/orders"))
}
