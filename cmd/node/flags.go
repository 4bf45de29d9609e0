package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/tolelom/dropchain/config"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "Path to the JSON config file",
		Value: "config.json",
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "Path to the validator keystore file",
		Value: "validator.key",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the chain database (overrides config)",
	}
	rpcPortFlag = cli.IntFlag{
		Name:  "rpc.port",
		Usage: "JSON-RPC listening port (overrides config)",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log.level",
		Usage: "Log level (trace|debug|info|warn|error)",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log.format",
		Usage: "Log output format (text|json)",
	}
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		configFlag,
		keyFlag,
		dataDirFlag,
		rpcPortFlag,
		logLevelFlag,
		logFormatFlag,
	}
}

// applyFlags overlays explicitly set CLI flags onto the loaded config.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(dataDirFlag.Name) {
		cfg.DataDir = c.String(dataDirFlag.Name)
	}
	if c.IsSet(rpcPortFlag.Name) {
		cfg.RPCPort = c.Int(rpcPortFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}
	if c.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = c.String(logFormatFlag.Name)
	}
}
