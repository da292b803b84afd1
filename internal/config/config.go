// Package config handles configuration loading for the example tools.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so credential passwords can
// be injected at runtime instead of living in the file.
//
// # Example Configuration
//
//	credentials:
//	  mode: pkcs12
//	  bundleFile: /etc/eet/EET_CA1_Playground-CZ00000019.p12
//	  bundlePassword: ${EET_BUNDLE_PASSWORD}
//
//	premises:
//	  id: 141
//	  register: "1patro-vpravo"
//
//	dispatch:
//	  timeout: 3s
//	  retryInterval: 1m
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Taxpayer    TaxpayerConfig    `yaml:"taxpayer"`
	Premises    PremisesConfig    `yaml:"premises"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Cache       CacheConfig       `yaml:"cache"`
}

// CredentialsConfig holds the operator keypair location
type CredentialsConfig struct {
	// Mode determines the keypair format
	// - "pem": separate certificate and key PEM files
	// - "pkcs12": a single bundle as distributed by the authority
	Mode string `yaml:"mode"`

	// PEM mode settings
	CertFile    string `yaml:"certFile"`
	KeyFile     string `yaml:"keyFile"`
	KeyPassword string `yaml:"keyPassword"`

	// PKCS#12 mode settings
	BundleFile     string `yaml:"bundleFile"`
	BundlePassword string `yaml:"bundlePassword"`
}

// TaxpayerConfig holds optional overrides for certificate-derived identity
type TaxpayerConfig struct {
	VATID      string `yaml:"vatId"`      // overrides the certificate subject
	Delegating string `yaml:"delegating"` // VAT id of the delegating taxpayer
}

// PremisesConfig identifies the registered premises and cash register
type PremisesConfig struct {
	ID       int    `yaml:"id"`
	Register string `yaml:"register"`
}

// DispatchConfig holds delivery settings
type DispatchConfig struct {
	// Endpoint overrides the mode-derived authority URL when set
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

// CacheConfig holds local cache settings
type CacheConfig struct {
	// Dir stores the downloaded authority CA certificates
	Dir string `yaml:"dir"`
}

// Load reads and validates configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Credentials.Mode == "" {
		c.Credentials.Mode = "pem"
	}
	if c.Dispatch.Timeout == 0 {
		c.Dispatch.Timeout = 3 * time.Second
	}
	if c.Dispatch.RetryInterval == 0 {
		c.Dispatch.RetryInterval = time.Minute
	}
	if c.Cache.Dir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.Cache.Dir = dir + "/go-eet"
		} else {
			c.Cache.Dir = ".go-eet-cache"
		}
	}
}

func (c *Config) validate() error {
	switch c.Credentials.Mode {
	case "pem":
		if c.Credentials.CertFile == "" || c.Credentials.KeyFile == "" {
			return fmt.Errorf("credentials.certFile and credentials.keyFile are required when mode is 'pem'")
		}
	case "pkcs12":
		if c.Credentials.BundleFile == "" {
			return fmt.Errorf("credentials.bundleFile is required when mode is 'pkcs12'")
		}
	default:
		return fmt.Errorf("credentials.mode must be 'pem' or 'pkcs12', got '%s'", c.Credentials.Mode)
	}

	if c.Premises.ID == 0 {
		return fmt.Errorf("premises.id is required")
	}
	if c.Premises.Register == "" {
		return fmt.Errorf("premises.register is required")
	}

	return nil
}
