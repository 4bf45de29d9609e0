package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/dropchain/config"
	"github.com/tolelom/dropchain/crypto"
	"github.com/tolelom/dropchain/internal/testutil"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"rpc_port": 9000,
		"block_interval": "500ms",
		"log": {"level": "debug", "format": "json"}
	}`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.RPCPort)
	assert.Equal(t, 500*time.Millisecond, cfg.BlockInterval.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "./data", cfg.DataDir, "unset fields keep defaults")
	assert.Equal(t, "dropchain-dev", cfg.Genesis.ChainID)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.DefaultConfig()
	cfg.Validators = []string{"abc"}
	cfg.BlockInterval = config.Duration{Duration: 3 * time.Second}
	require.NoError(t, config.Save(cfg, path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"block_interval": "soon"}`), 0644))
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	var buf bytes.Buffer
	require.NoError(t, config.SetupLogging(config.LogConfig{Level: "warn", Format: "json"}, &buf))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	logrus.WithField("component", "test").Warn("hello")
	assert.Contains(t, buf.String(), `"component":"test"`)
	logrus.SetOutput(os.Stderr)

	assert.Error(t, config.SetupLogging(config.LogConfig{Level: "loud"}, nil))
	assert.Error(t, config.SetupLogging(config.LogConfig{Format: "xml"}, nil))
}

func TestGenesisFundsAlloc(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Genesis.Alloc = map[string]uint64{pub.Hex(): 1000}

	state := testutil.NewStateDB()
	block, err := config.CreateGenesisBlock(cfg, state, priv)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block.Header.Height)
	assert.True(t, config.IsGenesisHash(block.Header.PrevHash))
	assert.NoError(t, block.Verify(pub))

	acc, err := state.GetAccount(pub.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), acc.Balance)

	cfg.Genesis.Alloc = map[string]uint64{"not-hex": 1}
	_, err = config.CreateGenesisBlock(cfg, testutil.NewStateDB(), priv)
	assert.Error(t, err)
}
