package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
)

func snowConfig() *config.ConnectionConfig {
	cfg := &config.ConnectionConfig{
		Type:     "snowflake",
		Database: "shop",
		Username: "reader",
		Password: "s3cret",
	}
	cfg.Set("account", "acme-analytics")
	return cfg
}

func TestNormalizeConfig(t *testing.T) {
	d := &Dialect{}

	cfg := snowConfig()
	d.NormalizeConfig(cfg)
	assert.Equal(t, "PUBLIC", cfg.Get("schema", ""))

	cfg = snowConfig()
	cfg.Set("schema", "SALES")
	d.NormalizeConfig(cfg)
	assert.Equal(t, "SALES", cfg.Get("schema", ""))
}

func TestRequiredFields(t *testing.T) {
	d := &Dialect{}
	assert.Equal(t, []string{"account", "database", "username"}, d.RequiredFields())
}

func TestBuildDSN(t *testing.T) {
	d := &Dialect{}
	cfg := snowConfig()
	cfg.Set("warehouse", "ANALYTICS_WH")
	d.NormalizeConfig(cfg)

	dsn := d.BuildDSN(cfg)
	assert.Contains(t, dsn, "reader")
	assert.Contains(t, dsn, "acme-analytics")
	assert.Contains(t, dsn, "shop")
	assert.Contains(t, dsn, "ANALYTICS_WH")
}

func TestQuoteIdentifier(t *testing.T) {
	d := &Dialect{}

	assert.Equal(t, `"ORDERS"`, d.QuoteIdentifier("ORDERS"))
	assert.Equal(t, `"SALES"."ORDERS"`, d.QuoteIdentifier("SALES.ORDERS"))
	assert.Equal(t, `"odd""name"`, d.QuoteIdentifier(`odd"name`))
}

func TestMapType(t *testing.T) {
	d := &Dialect{}

	cases := map[string]core.ColumnType{
		"NUMBER": core.ColumnTypeDecimal,
		"BIGINT": core.ColumnTypeInteger,
		"FLOAT8": core.ColumnTypeFloat,
		"BOOLEAN": core.ColumnTypeBoolean,
		"TIMESTAMP_NTZ": core.ColumnTypeTimestamp,
		"DATE": core.ColumnTypeDate,
		"TIME": core.ColumnTypeTime,
		"VARIANT": core.ColumnTypeJSON,
		"BINARY": core.ColumnTypeBinary,
		"varchar": core.ColumnTypeString,
		"GEOGRAPHY": core.ColumnTypeString,
	}
	for native, want := range cases {
		assert.Equal(t, want, d.MapType(native), native)
	}
}

func TestValidateQuery(t *testing.T) {
	c := New()

	assert.True(t, c.ValidateQuery("SELECT 1").Valid)
	assert.True(t, c.ValidateQuery("SHOW TABLES").Valid)
	assert.False(t, c.ValidateQuery("").Valid)
	assert.False(t, c.ValidateQuery("DELETE FROM orders").Valid)
	assert.False(t, c.ValidateQuery("SELECT 1 LIMIT 5; DROP DATABASE shop").Valid)
}
