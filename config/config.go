// Package config loads one node's share of the cluster configuration
// from YAML rather than flags alone.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the on-disk shape of a node's configuration file. It covers
// every field spec section 6's configuration surface names: nodeId, the
// peer table, timeout ranges, heartbeat interval, minElectionDelay,
// back-end credentials, the debug flag, the disabled-backend flag, and
// the protocol/router ports.
type Config struct {
	ID      string            `yaml:"id"`
	Address string            `yaml:"address"` // protocol (peer RPC) listen address
	Peers   map[string]string `yaml:"peers"`    // peer id -> dial address

	RouterAddress string `yaml:"router_address"` // client-facing front door listen address

	Timeouts TimeoutConfig `yaml:"timeouts"`

	Backend BackendConfig `yaml:"backend"`

	Debug bool `yaml:"debug"`

	Log LogConfig `yaml:"log"`
}

// BackendConfig configures the external state-machine collaborator (spec
// section 6). Credentials is opaque to this module; it is parsed but not
// read by cmd/node, and neither built-in state machine takes credentials.
// Disabled selects the disabled-backend mode: the applier still advances
// lastApplied and resolves completion handles, but no command is ever
// actually applied (see statemachine.NullStateMachine).
type BackendConfig struct {
	Credentials string `yaml:"credentials"`
	Disabled    bool   `yaml:"disabled"`
}

// TimeoutConfig is the timer discipline's knobs, given as YAML-friendly
// duration strings ("150ms", "1s").
type TimeoutConfig struct {
	MinLeaderTimeout   time.Duration `yaml:"min_leader_timeout"`
	MaxLeaderTimeout   time.Duration `yaml:"max_leader_timeout"`
	MinElectionTimeout time.Duration `yaml:"min_election_timeout"`
	MaxElectionTimeout time.Duration `yaml:"max_election_timeout"`
	HeartbeatTimeout   time.Duration `yaml:"heartbeat_timeout"`
	MinElectionDelay   time.Duration `yaml:"min_election_delay"`
}

// LogConfig selects the zap logging profile.
type LogConfig struct {
	Level       string `yaml:"level"`       // "debug", "info", "warn", "error"
	Development bool   `yaml:"development"` // console encoder, stack traces on warn+
}

// defaults mirror commonly-cited Raft timing ratios: leader timeout a few
// multiples of the heartbeat interval, election timeout an independent
// randomized window layered on top.
func defaults() Config {
	return Config{
		Timeouts: TimeoutConfig{
			MinLeaderTimeout:   150 * time.Millisecond,
			MaxLeaderTimeout:   300 * time.Millisecond,
			MinElectionTimeout: 150 * time.Millisecond,
			MaxElectionTimeout: 300 * time.Millisecond,
			HeartbeatTimeout:   50 * time.Millisecond,
			MinElectionDelay:   50 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and parses a YAML config file, filling in defaults for any
// timeout left at its zero value.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.ID == "" {
		return Config{}, fmt.Errorf("config: %s: id is required", path)
	}
	if cfg.Address == "" {
		return Config{}, fmt.Errorf("config: %s: address is required", path)
	}

	applyTimeoutDefaults(&cfg.Timeouts)
	return cfg, nil
}

func applyTimeoutDefaults(t *TimeoutConfig) {
	d := defaults().Timeouts
	if t.MinLeaderTimeout == 0 {
		t.MinLeaderTimeout = d.MinLeaderTimeout
	}
	if t.MaxLeaderTimeout == 0 {
		t.MaxLeaderTimeout = d.MaxLeaderTimeout
	}
	if t.MinElectionTimeout == 0 {
		t.MinElectionTimeout = d.MinElectionTimeout
	}
	if t.MaxElectionTimeout == 0 {
		t.MaxElectionTimeout = d.MaxElectionTimeout
	}
	if t.HeartbeatTimeout == 0 {
		t.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if t.MinElectionDelay == 0 {
		t.MinElectionDelay = d.MinElectionDelay
	}
}

// PeerIDs returns every configured peer id, excluding this node's own.
func (c Config) PeerIDs() []string {
	ids := make([]string, 0, len(c.Peers))
	for id := range c.Peers {
		if id == c.ID {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
