// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for webdav-go. A config file holds
// named server accounts; passwords are never stored in the file, only
// the name of an environment variable that supplies one.
package config

import (
	"fmt"
	"os"
)

// Account is one named server entry from the config file.
type Account struct {
	URL         string `toml:"url"`
	Username    string `toml:"username"`
	PasswordEnv string `toml:"password_env"`
	Insecure    bool   `toml:"insecure"`
}

// Password reads the account password from the configured environment
// variable. An account without password_env yields an empty password,
// which some servers accept for public shares.
func (a Account) Password() (string, error) {
	if a.PasswordEnv == "" {
		return "", nil
	}

	pw, ok := os.LookupEnv(a.PasswordEnv)
	if !ok {
		return "", fmt.Errorf("config: environment variable %s is not set", a.PasswordEnv)
	}

	return pw, nil
}

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	LogLevel string             `toml:"log_level"`
	Accounts map[string]Account `toml:"account"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Accounts: map[string]Account{},
	}
}

// Account selects a named account. With an empty name, a config holding
// exactly one account selects it implicitly; anything else is an error
// so a typo never silently targets the wrong server.
func (c *Config) Account(name string) (Account, error) {
	if name == "" {
		if len(c.Accounts) == 1 {
			for _, a := range c.Accounts {
				return a, nil
			}
		}

		return Account{}, fmt.Errorf("config: %d accounts defined, use --account to pick one", len(c.Accounts))
	}

	a, ok := c.Accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("config: account %q not defined", name)
	}

	return a, nil
}
