// Command node starts a dropchain node.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/tolelom/dropchain/config"
	"github.com/tolelom/dropchain/consensus"
	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/events"
	"github.com/tolelom/dropchain/indexer"
	"github.com/tolelom/dropchain/rpc"
	"github.com/tolelom/dropchain/storage"
	"github.com/tolelom/dropchain/vm"
	"github.com/tolelom/dropchain/wallet"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/tolelom/dropchain/vm/modules/economy"
	_ "github.com/tolelom/dropchain/vm/modules/edition"
)

var log = logrus.WithField("component", "node")

func main() {
	app := cli.NewApp()
	app.Name = "dropchain"
	app.Usage = "Limited-edition drop ledger node"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Flags = runFlags()
	app.Action = runNode
	app.Commands = []cli.Command{
		{
			Name:   "genkey",
			Usage:  "Generate a new validator key and save it to --key",
			Flags:  []cli.Flag{keyFlag},
			Action: genKey,
		},
		{
			Name:   "run",
			Usage:  "Start the node (default)",
			Flags:  runFlags(),
			Action: runNode,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// password reads the keystore password from the environment; CLI flags leak via ps.
func password() string {
	pw := os.Getenv("DROP_PASSWORD")
	if pw == "" {
		log.Warn("DROP_PASSWORD not set, keystore will use an empty password")
	}
	return pw
}

func genKey(c *cli.Context) error {
	keyPath := c.String(keyFlag.Name)
	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(keyPath, password(), w.PrivKey()); err != nil {
		return err
	}
	fmt.Printf("Generated key. Public key (validator address): %s\n", w.PubKey())
	fmt.Printf("Saved to: %s\n", keyPath)
	return nil
}

func runNode(c *cli.Context) error {
	cfg, err := loadConfig(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyFlags(c, cfg)
	if cfg.BlockInterval.Duration <= 0 {
		return fmt.Errorf("config: block_interval must be positive")
	}
	if err := config.SetupLogging(cfg.Log, os.Stderr); err != nil {
		return err
	}

	privKey, err := wallet.LoadKey(c.String(keyFlag.Name), password())
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewLevelBlockStore(db))
	if err := bc.Init(); err != nil {
		return fmt.Errorf("blockchain init: %w", err)
	}

	// ---- genesis block (if fresh chain) ----
	if bc.Tip() == nil {
		genesisBlock, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if err := bc.AddBlock(genesisBlock); err != nil {
			return fmt.Errorf("add genesis: %w", err)
		}
		log.WithField("hash", genesisBlock.Hash).Info("genesis block committed")
	}

	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	mempool := core.NewMempool()
	exec := vm.NewExecutor(state, emitter)
	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, privKey)

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcServer := rpc.NewServer(rpcAddr, rpc.NewHandler(bc, mempool, state.Committed(), idx, cfg.Genesis.ChainID), cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	defer rpcServer.Stop()
	log.WithFields(logrus.Fields{
		"addr": rpcServer.Addr(),
		"auth": cfg.RPCAuthToken != "",
	}).Info("rpc listening")

	// ---- consensus loop ----
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poa.Run(cfg.BlockInterval.Duration, done)
	}()
	log.WithFields(logrus.Fields{
		"validator": privKey.Public().Hex(),
		"interval":  cfg.BlockInterval.Duration,
	}).Info("consensus running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	// Stop consensus before the deferred rpc and db shutdown.
	close(done)
	wg.Wait()
	log.Info("shutdown complete")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).Info("config file not found, using defaults")
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
