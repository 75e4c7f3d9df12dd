package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	koanfenv "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	koanf "github.com/knadh/koanf/v2"
)

// envPrefix lets deployments override any file value, e.g.
// RUSTFS_OP_DEFAULTIMAGE=rustfs/rustfs:1.2.3.
const envPrefix = "RUSTFS_OP_"

// Requeue holds the retry delays per failure class. Credential and immutable
// failures are user-fixable, so they requeue slowly to avoid event spam.
type Requeue struct {
	Transient   time.Duration `koanf:"transient"`
	Validation  time.Duration `koanf:"validation"`
	Credentials time.Duration `koanf:"credentials"`
	Immutable   time.Duration `koanf:"immutable"`
}

// Config keys are lowercase so the file and RUSTFS_OP_* env forms agree.
type Config struct {
	// DefaultImage is used when a Tenant does not pin one.
	DefaultImage string `koanf:"defaultimage"`

	// AllowVolumeExpansion permits growing a pool's volume claim size when the
	// hosting platform supports online expansion. Any other claim mutation is
	// always rejected.
	AllowVolumeExpansion bool `koanf:"allowvolumeexpansion"`

	// ReconcileTimeout is the hard deadline of one reconciliation pass.
	ReconcileTimeout time.Duration `koanf:"reconciletimeout"`

	Requeue Requeue `koanf:"requeue"`
}

var DefaultConfig = Config{
	DefaultImage:         "rustfs/rustfs:latest",
	AllowVolumeExpansion: false,
	ReconcileTimeout:     time.Minute,
	Requeue: Requeue{
		Transient:   5 * time.Second,
		Validation:  15 * time.Second,
		Credentials: 60 * time.Second,
		Immutable:   60 * time.Second,
	},
}

// GetConfig layers defaults, the YAML file at configPath (if any) and
// RUSTFS_OP_* environment variables, in that order.
func GetConfig(configPath string) (*Config, error) {
	k := koanf.New(".")
	cfg := &Config{}

	if err := k.Load(structs.Provider(DefaultConfig, "koanf"), nil); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(koanfenv.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
