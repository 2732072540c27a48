// Copyright 2026 The nanod Authors
// This file is part of the nanod library.
//
// The nanod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The nanod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the nanod library. If not, see <http://www.gnu.org/licenses/>.

// nanod is the command line interface for running an account-chain
// node: it wires the key-value store, ledger, confirming set, vote
// cache, election engine, block processor and wallet store into one
// running process, the way cmd/kcn's main.go wires klaytn's equivalent
// subsystems behind a urfave/cli app.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/nanocurrency/nano-node-sub005/blockproc"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/confirm"
	"github.com/nanocurrency/nano-node-sub005/election"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/store"
	"github.com/nanocurrency/nano-node-sub005/store/badgerstore"
	"github.com/nanocurrency/nano-node-sub005/store/leveldbstore"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
	"github.com/nanocurrency/nano-node-sub005/votecache"
	"github.com/nanocurrency/nano-node-sub005/wallet"
)

var logger = log.NewModuleLogger(log.CMDNanod)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory for the ledger and wallet store",
	}
	dbTypeFlag = cli.StringFlag{
		Name:  "dbtype",
		Usage: "storage backend: leveldb, badger, or memory",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "nanod"
	app.Usage = "account-chain node"
	app.Flags = []cli.Flag{configFileFlag, dataDirFlag, dbTypeFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if file := ctx.String(configFileFlag.Name); file != "" {
		var err error
		cfg, err = config.LoadTOML(file, cfg)
		if err != nil {
			return cfg, err
		}
	}
	if d := ctx.String(dataDirFlag.Name); d != "" {
		cfg.DataDir = d
	}
	if t := ctx.String(dbTypeFlag.Name); t != "" {
		cfg.DBType = config.DBType(t)
	}
	return cfg, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.DBType {
	case config.DBTypeMemory:
		return memstore.New(), nil
	case config.DBTypeBadger:
		return badgerstore.Open(cfg.ResolvePath("chaindata"))
	default:
		return leveldbstore.Open(cfg.ResolvePath("chaindata"), 256, 512)
	}
}

// run builds and starts the store, ledger, confirming set, vote cache,
// election engine, block processor and wallet store (L1-L7 and L9),
// matching §4's component boundaries, then blocks until the process
// receives an interrupt. No bootstrap attempt (L8) is started.
func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	l := ledger.New(db, ledger.Options{})

	cs := confirm.New(l)
	l.SetCementedChecker(cs)
	cs.Start()
	defer cs.Stop()

	vc := votecache.New(cfg.VoteCacheMaxSizeBytes, cfg.VoteCacheMaxPerBucket, func(rep common.Account) (common.Amount, error) {
		return l.Weight(rep)
	})

	manager := election.New(cfg, l, cs, vc, common.Amount{}, nil, nil)
	manager.Start()
	defer manager.Stop()

	proc := blockproc.New(cfg, l, manager, blockproc.Metrics{})
	proc.Start()
	defer proc.Stop()

	wallets := wallet.New(cfg, db)
	ids, err := wallets.Wallets()
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}

	logger.Info("nanod started", "datadir", cfg.DataDir, "dbtype", string(cfg.DBType), "wallets", len(ids))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("nanod shutting down")
	return nil
}
