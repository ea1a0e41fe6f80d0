package restapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/restapi"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"alpha"},{"id":2,"name":"beta"}]`))
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"auth":"` + r.Header.Get("Authorization") + `"}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func apiConfig(baseURL string) *config.ConnectionConfig {
	return &config.ConnectionConfig{
		Type:    "api",
		Name:    "test-api",
		BaseURL: baseURL,
		Additional: map[string]string{
			"endpoints": "/users",
		},
	}
}

func TestTestConnection(t *testing.T) {
	c := restapi.New()
	srv := newServer(t)

	t.Run("success", func(t *testing.T) {
		result := c.TestConnection(context.Background(), apiConfig(srv.URL))
		require.True(t, result.Success, result.Error)
		assert.Equal(t, 200, result.Metadata["status_code"])
	})

	t.Run("invalid base url", func(t *testing.T) {
		result := c.TestConnection(context.Background(), apiConfig("not a url"))
		require.False(t, result.Success)
		assert.Equal(t, "validation", result.Metadata["error_type"])
	})

	t.Run("unreachable host", func(t *testing.T) {
		result := c.TestConnection(context.Background(), apiConfig("http://127.0.0.1:1"))
		assert.False(t, result.Success)
	})
}

func TestExecuteQuery(t *testing.T) {
	c := restapi.New()
	srv := newServer(t)

	ctx := context.Background()
	conn, err := c.Connect(ctx, apiConfig(srv.URL))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQuery(ctx, conn, "GET:/users")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, result.Columns)
	require.Equal(t, 2, result.RowCount)
	assert.Equal(t, []any{int64(1), "alpha"}, result.Rows[0])
	assert.Equal(t, 200, result.Metadata["status_code"])
	assert.Equal(t, "/users", result.Metadata["endpoint"])
}

func TestExecuteQueryErrorStatus(t *testing.T) {
	c := restapi.New()
	srv := newServer(t)

	ctx := context.Background()
	conn, err := c.Connect(ctx, apiConfig(srv.URL))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	_, err = c.ExecuteQuery(ctx, conn, "GET:/broken")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
	assert.Contains(t, err.Error(), "500")
}

func TestAuthorizationHeader(t *testing.T) {
	c := restapi.New()
	srv := newServer(t)

	cfg := apiConfig(srv.URL)
	cfg.AccessToken = "tok123"

	ctx := context.Background()
	conn, err := c.Connect(ctx, cfg)
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQuery(ctx, conn, "GET:/whoami")
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, "Bearer tok123", result.Rows[0][0])
}

func TestExecuteQueryWithLimit(t *testing.T) {
	c := restapi.New()
	srv := newServer(t)

	ctx := context.Background()
	conn, err := c.Connect(ctx, apiConfig(srv.URL))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	result, err := c.ExecuteQueryWithLimit(ctx, conn, "GET:/users", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestGetSchemaFromDeclaredEndpoints(t *testing.T) {
	c := restapi.New()
	srv := newServer(t)

	ctx := context.Background()
	conn, err := c.Connect(ctx, apiConfig(srv.URL))
	require.NoError(t, err)
	defer c.Disconnect(ctx, conn)

	schema, err := c.GetSchema(ctx, conn)
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "/users", schema.Tables[0].Name)
	assert.Equal(t, int64(2), schema.Tables[0].RowCount)
	require.Len(t, schema.Tables[0].Columns, 2)
}

func TestValidateQuery(t *testing.T) {
	c := restapi.New()

	assert.True(t, c.ValidateQuery("GET:/users").Valid)
	assert.True(t, c.ValidateQuery(`POST:/users:{"name":"x"}`).Valid)
	assert.False(t, c.ValidateQuery("FETCH:/users").Valid)
	assert.False(t, c.ValidateQuery("SELECT * FROM users").Valid)
}
