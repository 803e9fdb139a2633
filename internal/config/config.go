// Package config loads tycho-store settings from a config file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sloppy/tychostore/internal/evm"
)

// Defaults applied when neither file nor environment set a value.
const (
	DefaultDBPath = "tycho.db"
	DefaultListen = "127.0.0.1:8080"
	DefaultChain  = "ethereum"
)

// Config holds all runtime settings.
type Config struct {
	DB               string   `mapstructure:"db"`
	Listen           string   `mapstructure:"listen"`
	Chain            string   `mapstructure:"chain"`
	TrackedContracts []string `mapstructure:"tracked_contracts"`
	Verbose          bool     `mapstructure:"verbose"`
}

// ParsedChain returns the configured default chain.
func (c *Config) ParsedChain() (evm.Chain, error) {
	return evm.ParseChain(c.Chain)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DB) == "" {
		errs = append(errs, fmt.Errorf("db path is empty"))
	}
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, fmt.Errorf("listen address is empty"))
	}
	if _, err := c.ParsedChain(); err != nil {
		errs = append(errs, err)
	}
	for _, def := range c.TrackedContracts {
		def = strings.TrimPrefix(strings.TrimSpace(def), "!")
		if _, err := evm.ParseAddress(def); err != nil {
			errs = append(errs, fmt.Errorf("tracked contract: %w", err))
		}
	}
	return errors.Join(errs...)
}
