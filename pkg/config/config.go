// Package config defines the connection configuration consumed by
// connectors. Credential decryption and storage happen upstream; this
// layer only ever sees plaintext values at call time.
package config

import (
	"fmt"
	"time"
)

// ConnectionConfig carries everything a connector needs to reach a backend.
// Which fields are required varies per connector type: SQL backends need
// host, database and username; file backends need path and name; OAuth
// backends need a token. Connector-specific settings (delimiters, SSL mode,
// sheet ranges, encodings) travel in Additional.
type ConnectionConfig struct {
	// Type is the connector type discriminant (e.g. "postgres", "csv").
	Type string `mapstructure:"type" yaml:"type" json:"type"`

	// Name identifies this configuration to the caller.
	Name string `mapstructure:"name" yaml:"name" json:"name"`

	// Network backends
	Host     string `mapstructure:"host" yaml:"host" json:"host"`
	Port     int    `mapstructure:"port" yaml:"port" json:"port"`
	Database string `mapstructure:"database" yaml:"database" json:"database"`
	Username string `mapstructure:"username" yaml:"username" json:"username"`
	Password string `mapstructure:"password" yaml:"password" json:"password,omitempty"`

	// File backends
	FilePath string `mapstructure:"file_path" yaml:"file_path" json:"file_path"`
	FileName string `mapstructure:"file_name" yaml:"file_name" json:"file_name"`

	// External API backends
	BaseURL     string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	AccessToken string `mapstructure:"access_token" yaml:"access_token" json:"access_token,omitempty"`

	// Timeouts are recorded here and threaded into the underlying network
	// clients by each connector.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout" yaml:"query_timeout" json:"query_timeout"`

	// Additional holds backend-specific settings: ssl_mode, encoding,
	// delimiter, spreadsheet_id, document_id, auth headers and so on.
	Additional map[string]string `mapstructure:"additional" yaml:"additional" json:"additional,omitempty"`
}

// Get returns an Additional setting, or the fallback when unset.
func (c *ConnectionConfig) Get(key, fallback string) string {
	if c.Additional == nil {
		return fallback
	}
	if v, ok := c.Additional[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Set stores an Additional setting, allocating the map on first use.
func (c *ConnectionConfig) Set(key, value string) {
	if c.Additional == nil {
		c.Additional = make(map[string]string)
	}
	c.Additional[key] = value
}

// Clone returns a deep copy so connectors can normalize defaults without
// mutating the caller's configuration.
func (c *ConnectionConfig) Clone() *ConnectionConfig {
	out := *c
	if c.Additional != nil {
		out.Additional = make(map[string]string, len(c.Additional))
		for k, v := range c.Additional {
			out.Additional[k] = v
		}
	}
	return &out
}

// RequireFields checks that the named fields are present. Connectors call
// this from TestConnection and Connect with their own required set.
func (c *ConnectionConfig) RequireFields(fields ...string) error {
	for _, f := range fields {
		var missing bool
		switch f {
		case "type":
			missing = c.Type == ""
		case "host":
			missing = c.Host == ""
		case "database":
			missing = c.Database == ""
		case "username":
			missing = c.Username == ""
		case "file_path":
			missing = c.FilePath == ""
		case "file_name":
			missing = c.FileName == ""
		case "base_url":
			missing = c.BaseURL == ""
		case "access_token":
			missing = c.AccessToken == ""
		default:
			missing = c.Get(f, "") == ""
		}
		if missing {
			return fmt.Errorf("%s is required", f)
		}
	}
	return nil
}
