// Package catalog wires the built-in connectors into a registry.
// Callers construct the registry they need instead of sharing a global
// one; embedders can start from Default and register their own types on
// top.
package catalog

import (
	"github.com/bifrostdata/bifrost/pkg/connector/csvfile"
	"github.com/bifrostdata/bifrost/pkg/connector/excel"
	"github.com/bifrostdata/bifrost/pkg/connector/gdocs"
	"github.com/bifrostdata/bifrost/pkg/connector/gsheets"
	"github.com/bifrostdata/bifrost/pkg/connector/mongodb"
	"github.com/bifrostdata/bifrost/pkg/connector/mysql"
	"github.com/bifrostdata/bifrost/pkg/connector/pdffile"
	"github.com/bifrostdata/bifrost/pkg/connector/postgres"
	"github.com/bifrostdata/bifrost/pkg/connector/redshift"
	"github.com/bifrostdata/bifrost/pkg/connector/registry"
	"github.com/bifrostdata/bifrost/pkg/connector/restapi"
	"github.com/bifrostdata/bifrost/pkg/connector/slidefile"
	"github.com/bifrostdata/bifrost/pkg/connector/snowflake"
	"github.com/bifrostdata/bifrost/pkg/connector/sqlite"
	"github.com/bifrostdata/bifrost/pkg/connector/textfile"
	"github.com/bifrostdata/bifrost/pkg/connector/webpage"
	"github.com/bifrostdata/bifrost/pkg/connector/wordfile"
)

// Default builds a registry holding every built-in connector.
func Default() *registry.Registry {
	r := registry.New()

	r.MustRegister(postgres.New())
	r.MustRegister(redshift.New())
	r.MustRegister(mysql.New())
	r.MustRegister(sqlite.New())
	r.MustRegister(snowflake.New())

	r.MustRegister(csvfile.New())
	r.MustRegister(excel.New())
	r.MustRegister(textfile.New())
	r.MustRegister(pdffile.New())
	r.MustRegister(wordfile.New())
	r.MustRegister(slidefile.New())

	r.MustRegister(gsheets.New())
	r.MustRegister(gdocs.New())
	r.MustRegister(restapi.New())
	r.MustRegister(webpage.New())
	r.MustRegister(mongodb.New())

	return r
}
