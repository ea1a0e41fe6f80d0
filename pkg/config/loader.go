package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Profile is a named set of connection configurations loaded from a
// profile file. The CLI resolves connections by name; services typically
// receive decrypted configs directly instead.
type Profile struct {
	Connections []*ConnectionConfig `mapstructure:"connections"`
}

// LoadProfile reads a YAML profile file into a Profile. Environment
// variables override file values using the BIFROST_ prefix.
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BIFROST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var profile Profile
	if err := v.Unmarshal(&profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	for _, conn := range profile.Connections {
		if conn.Type == "" {
			return nil, fmt.Errorf("profile %s: connection %q has no type", path, conn.Name)
		}
	}

	return &profile, nil
}

// Connection returns the named connection from the profile.
func (p *Profile) Connection(name string) (*ConnectionConfig, error) {
	for _, conn := range p.Connections {
		if conn.Name == name {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("connection %q not found in profile", name)
}
