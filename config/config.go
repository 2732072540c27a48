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

// Package config holds the node-wide configuration handle threaded through
// every subsystem constructor. Nothing in this repository reads process
// globals for tunables; everything comes from a *Config passed in.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"time"
	"unicode"

	"github.com/naoina/toml"
)

// DBType selects the key-value storage backend (L1).
type DBType string

const (
	DBTypeLevelDB DBType = "leveldb"
	DBTypeBadger  DBType = "badger"
	DBTypeMemory  DBType = "memory"
)

// Config aggregates every tunable a node exposes. It is loaded from a
// TOML file by cmd/nanod and then passed by value/pointer into each
// component constructor.
type Config struct {
	DataDir string
	DBType  DBType

	// Network identity, carried on every wire message header (L10).
	NetworkID uint32

	// Ledger / genesis (L3).
	GenesisSupply   [16]byte
	BlockInfoMax    uint64 // blocks_info checkpoint interval; the ledger writes no checkpoints
	PruningEnabled  bool
	PruningMinDepth uint64

	// Election engine (L6).
	MaxBlocksPerElection      int     // max_blocks
	ActiveElectionsSize       int     // active_elections.size
	HintedLimitPercentage     int     // hinted_limit_percentage
	OptimisticLimitPercentage int     // optimistic_scheduler share of active_elections.size
	QuorumFraction            float64 // fraction of online trended weight required to confirm
	PrincipalWeightMinimum  [16]byte      // minimum delegated weight to be a principal representative
	ConfirmReqTickInterval  time.Duration
	ConfirmReqSampleSize    int

	// Vote cache (L5).
	VoteCacheMaxSizeBytes int
	VoteCacheMaxPerBucket int

	// Election tally snapshot cache (L6), read by status queries without
	// taking the active set's lock.
	ElectionTallyCacheBytes int

	// Confirming set (L4).
	ConfirmedSetCapacity int

	// Block processor (L7).
	BlockProcessorQueueLimitLive      int
	BlockProcessorQueueLimitBootstrap int
	UncheckedCutoff                  time.Duration

	// Bootstrap (L8).
	BootstrapBaseConnections        int
	BootstrapMaxConnections         int
	BootstrapMaxNewConnections      int
	BootstrapWarmupTime             time.Duration
	BootstrapMinimumBlocksPerSec    float64
	BootstrapMinimumFrontierBlocksPerSec float64
	BootstrapFrontierRetryLimit     int
	BootstrapIOTimeout              time.Duration
	BootstrapPopulateCadence        time.Duration

	// Wallet (L9).
	WalletKDFMemoryKiB  uint32
	WalletKDFIterations uint32
	WalletKDFThreads    uint8

	// Representative keys this node votes with, if any (empty for a
	// non-voting node).
	RepresentativeAccounts [][]byte

	// Metrics / logging (ambient).
	MetricsEnabled        bool
	PrometheusExporter    bool
	PrometheusExporterPort int
}

// Default returns reasonable defaults (max_blocks=10, warmup_time_sec=5,
// minimum_blocks_per_sec=10, frontier_retry_limit=16, block_info_max≈128).
func Default() Config {
	return Config{
		DataDir:                           DefaultDataDir(),
		DBType:                            DBTypeLevelDB,
		NetworkID:                         1,
		BlockInfoMax:                      128,
		PruningEnabled:                    false,
		PruningMinDepth:                   100000,
		MaxBlocksPerElection:              10,
		ActiveElectionsSize:               5000,
		HintedLimitPercentage:             20,
		OptimisticLimitPercentage:         10,
		QuorumFraction:                    0.67,
		ConfirmReqTickInterval:            15 * time.Second,
		ConfirmReqSampleSize:              32,
		VoteCacheMaxSizeBytes:             64 << 20,
		VoteCacheMaxPerBucket:             128,
		ElectionTallyCacheBytes:           32 << 20,
		ConfirmedSetCapacity:              65536,
		BlockProcessorQueueLimitLive:      16384,
		BlockProcessorQueueLimitBootstrap: 65536,
		UncheckedCutoff:                  8 * time.Hour,
		BootstrapBaseConnections:          4,
		BootstrapMaxConnections:           32,
		BootstrapMaxNewConnections:        10,
		BootstrapWarmupTime:               5 * time.Second,
		BootstrapMinimumBlocksPerSec:      10,
		BootstrapMinimumFrontierBlocksPerSec: 1000,
		BootstrapFrontierRetryLimit:       16,
		BootstrapIOTimeout:                5 * time.Second,
		BootstrapPopulateCadence:          1 * time.Second,
		WalletKDFMemoryKiB:                64 * 1024,
		WalletKDFIterations:               1,
		WalletKDFThreads:                  4,
		MetricsEnabled:                    false,
		PrometheusExporter:                false,
		PrometheusExporterPort:            9900,
	}
}

// ResolvePath expands a relative path against DataDir, mirroring the
// node configuration's path-resolution helper.
func (c *Config) ResolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func DefaultDataDir() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Nanod")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Nanod")
	default:
		return filepath.Join(home, ".nanod")
	}
}

// tomlSettings mirrors cmd/ranger/config.go's decoder: TOML keys use
// the same names as the Go struct fields, and an unknown field is a
// hard error rather than silently ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LoadTOML reads a Config from file, starting from base so anything the
// file omits keeps base's value. A file that cannot be opened yields
// base together with the open error.
func LoadTOML(file string, base Config) (Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return base, err
	}
	defer f.Close()

	cfg := base
	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return cfg, err
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	return ""
}
