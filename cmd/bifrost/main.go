// Command bifrost is the connector CLI: list connector types, test
// connections, discover schemas and run queries against any configured
// backend through the shared connector contract.
package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/bifrostdata/bifrost/pkg/config"
	"github.com/bifrostdata/bifrost/pkg/connector/catalog"
	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/logger"
)

var (
	profilePath string
	logLevel    string
	limit       int
)

func main() {
	root := &cobra.Command{
		Use:   "bifrost",
		Short: "Query heterogeneous data sources through one contract",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&profilePath, "profile", "bifrost.yaml", "path to the connection profile")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(connectorsCmd(), testCmd(), schemaCmd(), queryCmd(), sampleCmd(), validateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func connectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connectors",
		Short: "List registered connector types and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := catalog.Default()
			out := make(map[string]*core.Capabilities, reg.Len())
			for name, c := range reg.All() {
				out[name] = c.Capabilities()
			}
			return printJSON(out)
		},
	}
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <connection>",
		Short: "Test a configured connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connector, cfg, err := resolve(args[0])
			if err != nil {
				return err
			}

			result := connector.TestConnection(cmd.Context(), cfg)
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("connection test failed: %s", result.Error)
			}
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <connection>",
		Short: "Discover and print a connection's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd.Context(), args[0], func(ctx context.Context, c core.Connector, conn *core.Connection) error {
				schema, err := c.GetSchema(ctx, conn)
				if err != nil {
					return err
				}
				return printJSON(schema)
			})
		},
	}
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <connection> <query>",
		Short: "Execute a query and print the normalized result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd.Context(), args[0], func(ctx context.Context, c core.Connector, conn *core.Connection) error {
				var (
					result *core.QueryResult
					err    error
				)
				if limit > 0 {
					result, err = c.ExecuteQueryWithLimit(ctx, conn, args[1], limit)
				} else {
					result, err = c.ExecuteQuery(ctx, conn, args[1])
				}
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of returned rows")
	return cmd
}

func sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample <connection> <table>",
		Short: "Fetch sample rows from a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd.Context(), args[0], func(ctx context.Context, c core.Connector, conn *core.Connection) error {
				result, err := c.GetSampleData(ctx, conn, args[1], limit)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of sample rows")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <connection> <query>",
		Short: "Validate a query without executing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			connector, _, err := resolve(args[0])
			if err != nil {
				return err
			}

			result := connector.ValidateQuery(args[1])
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("query is invalid: %s", result.Error)
			}
			return nil
		},
	}
}

// resolve loads the profile and pairs the named connection with its
// connector.
func resolve(name string) (core.Connector, *config.ConnectionConfig, error) {
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := profile.Connection(name)
	if err != nil {
		return nil, nil, err
	}

	connector, err := catalog.Default().MustLookup(cfg.Type)
	if err != nil {
		return nil, nil, err
	}
	return connector, cfg, nil
}

// withConnection opens a connection, runs fn and always disconnects.
func withConnection(ctx context.Context, name string, fn func(context.Context, core.Connector, *core.Connection) error) error {
	connector, cfg, err := resolve(name)
	if err != nil {
		return err
	}

	conn, err := connector.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := connector.Disconnect(ctx, conn); err != nil {
			fmt.Fprintf(os.Stderr, "warning: disconnect failed: %v\n", err)
		}
	}()

	return fn(ctx, connector, conn)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
