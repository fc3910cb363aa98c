// Package config holds the write server configuration and the sources it can
// be obtained from.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// DefaultConfigPrefix is the environment variable prefix read by the default
// source.
const DefaultConfigPrefix = "EUREKA2"

type TransportConfig struct {
	Host             string `env:"EUREKA2_TRANSPORT_HOST"`
	RegistrationPort int    `env:"EUREKA2_TRANSPORT_REGISTRATION_PORT"`
	InterestPort     int    `env:"EUREKA2_TRANSPORT_INTEREST_PORT"`
	ReplicationPort  int    `env:"EUREKA2_TRANSPORT_REPLICATION_PORT"`
	WebAdminPort     int    `env:"EUREKA2_TRANSPORT_WEB_ADMIN_PORT"`
}

type ReplicationConfig struct {
	// PeerBuffer bounds the number of unprocessed peer change events.
	PeerBuffer      int           `env:"EUREKA2_REPLICATION_PEER_BUFFER"`
	ShutdownTimeout time.Duration `env:"EUREKA2_REPLICATION_SHUTDOWN_TIMEOUT"`
}

// WriteServerConfig is the complete configuration of a write server. Port 0
// asks for an ephemeral port.
type WriteServerConfig struct {
	ServerName  string `env:"EUREKA2_SERVER_NAME"`
	Transport   TransportConfig
	Replication ReplicationConfig
}

func Default() *WriteServerConfig {
	return &WriteServerConfig{
		ServerName: "embedded-write-server",
		Transport: TransportConfig{
			Host: "127.0.0.1",
		},
		Replication: ReplicationConfig{
			PeerBuffer:      64,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Copy returns an independent copy so that two builds never share one
// configuration value.
func (c *WriteServerConfig) Copy() *WriteServerConfig {
	out := *c
	return &out
}

func (c *WriteServerConfig) Validate() error {
	ports := map[string]int{
		"registration": c.Transport.RegistrationPort,
		"interest":     c.Transport.InterestPort,
		"replication":  c.Transport.ReplicationPort,
		"web admin":    c.Transport.WebAdminPort,
	}
	for _, name := range []string{"registration", "interest", "replication", "web admin"} {
		if p := ports[name]; p < 0 || p > 65535 {
			return fmt.Errorf("%s port %d out of range", name, p)
		}
	}
	if c.Replication.PeerBuffer < 0 {
		return fmt.Errorf("replication peer buffer must not be negative")
	}
	return nil
}

// Source yields a configuration value.
type Source interface {
	Name() string
	Load() (*WriteServerConfig, error)
}

type staticSource struct {
	cfg *WriteServerConfig
}

// Static wraps an in-memory value. Load returns a copy of it.
func Static(cfg *WriteServerConfig) Source {
	return &staticSource{cfg: cfg}
}

func (s *staticSource) Name() string {
	return "static"
}

func (s *staticSource) Load() (*WriteServerConfig, error) {
	if s.cfg == nil {
		return nil, errors.New("static configuration is nil")
	}
	cfg := s.cfg.Copy()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvSource reads EUREKA2_* environment variables on top of Default. Files
// are dotenv files loaded first; variables already set in the environment
// take precedence over them.
type EnvSource struct {
	Files []string
}

func DefaultSource(files ...string) *EnvSource {
	return &EnvSource{Files: files}
}

func (s *EnvSource) Name() string {
	return "env:" + DefaultConfigPrefix
}

func (s *EnvSource) Load() (*WriteServerConfig, error) {
	if len(s.Files) > 0 {
		if err := godotenv.Load(s.Files...); err != nil {
			return nil, fmt.Errorf("load dotenv files: %w", err)
		}
	}

	cfg := Default()
	if err := envdecode.StrictDecode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
