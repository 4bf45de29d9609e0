package config

import (
	"encoding/json"
	"os"
	"time"
)

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID string            `json:"chain_id"`
	Alloc   map[string]uint64 `json:"alloc"` // pubkey hex → initial balance
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level     string `json:"level"`  // trace|debug|info|warn|error
	Format    string `json:"format"` // text|json
	SentryDSN string `json:"sentry_dsn,omitempty"`
}

// Config holds all node configuration.
type Config struct {
	NodeID        string        `json:"node_id"`
	DataDir       string        `json:"data_dir"`
	RPCPort       int           `json:"rpc_port"`
	RPCAuthToken  string        `json:"rpc_auth_token,omitempty"` // empty → no auth
	BlockInterval Duration      `json:"block_interval"`
	MaxBlockTxs   int           `json:"max_block_txs"` // max transactions per block; 0 → 500
	Validators    []string      `json:"validators"`    // authorised proposer pubkey hexes
	Genesis       GenesisConfig `json:"genesis"`
	Log           LogConfig     `json:"log"`
}

// Duration is a time.Duration that reads and writes as "2s" in JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:        "node0",
		DataDir:       "./data",
		RPCPort:       8545,
		BlockInterval: Duration{2 * time.Second},
		MaxBlockTxs:   500,
		Genesis: GenesisConfig{
			ChainID: "dropchain-dev",
			Alloc:   map[string]uint64{},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a JSON config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
