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

// Package log is the module-scoped logging facade shared by every
// subsystem package. Each package obtains its own Logger by calling
// NewModuleLogger with one of the constants below so that log lines can
// be filtered per-module without threading a logger through every call.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Module identifies the subsystem emitting a log line.
type Module int

const (
	Common Module = iota
	Store
	Block
	Ledger
	ConfirmingSet
	VoteCache
	Election
	BlockProcessor
	Bootstrap
	Wallet
	Message
	Node
	CMDNanod
)

var moduleNames = map[Module]string{
	Common:         "common",
	Store:          "store",
	Block:          "block",
	Ledger:         "ledger",
	ConfirmingSet:  "confirm",
	VoteCache:      "votecache",
	Election:       "election",
	BlockProcessor: "blockproc",
	Bootstrap:      "bootstrap",
	Wallet:         "wallet",
	Message:        "message",
	Node:           "node",
	CMDNanod:       "cmd/nanod",
}

// Lvl is a log severity level, ordered from least to most verbose.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var lvlNames = [...]string{"CRIT", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l Lvl) String() string {
	if int(l) < len(lvlNames) {
		return lvlNames[l]
	}
	return "UNKNOWN"
}

// Logger is implemented by every module logger returned by NewModuleLogger.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	// NewWith returns a derived logger that prepends the given key/value
	// pairs to every subsequent line, the way an election or a bootstrap
	// connection tags its log lines with the root or peer it concerns.
	NewWith(ctx ...interface{}) Logger
}

var (
	root       = newRootLogger()
	levelMu    sync.RWMutex
	levelLimit = LvlInfo
)

// SetLevel bounds the verbosity of every module logger process-wide.
func SetLevel(l Lvl) {
	levelMu.Lock()
	defer levelMu.Unlock()
	levelLimit = l
}

func currentLevel() Lvl {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return levelLimit
}

type logger struct {
	out    io.Writer
	mu     *sync.Mutex
	module string
	ctx    []interface{}
}

func newRootLogger() *logger {
	return &logger{
		out: colorable.NewColorableStdout(),
		mu:  &sync.Mutex{},
	}
}

// NewModuleLogger returns the logger for a given subsystem module.
func NewModuleLogger(m Module) Logger {
	name, ok := moduleNames[m]
	if !ok {
		name = "unknown"
	}
	return &logger{out: root.out, mu: root.mu, module: name}
}

func (l *logger) NewWith(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{out: l.out, mu: l.mu, module: l.module, ctx: merged}
}

func (l *logger) log(lvl Lvl, msg string, ctx []interface{}) {
	if lvl > currentLevel() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var caller string
	if lvl <= LvlError {
		if cs := stack.Caller(2); true {
			caller = fmt.Sprintf(" caller=%+v", cs)
		}
	}

	fmt.Fprintf(l.out, "t=%s lvl=%s module=%s msg=%q%s",
		time.Now().Format(time.RFC3339), lvl, l.module, msg, caller)
	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	fmt.Fprintln(l.out)

	if lvl == LvlCrit {
		os.Exit(1)
	}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.log(LvlCrit, msg, ctx) }
