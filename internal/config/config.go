// Package config holds the engine's runtime knobs and a loader that reads
// them from the process environment using small getEnv*/.env-loader helpers.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/backtest/internal/bar"
)

// SyncMode records how multiple feeds that disagree on timestamp cadence
// are to be advanced. The engine loop does not read it: it always advances
// every feed due at the earliest pending timestamp.
type SyncMode int

const (
	// SyncBlended advances every feed that is due at the earliest pending
	// timestamp in lockstep (the default).
	SyncBlended SyncMode = iota
	// SyncOld names the single-feed-drives-the-clock mode. The engine loop
	// has no separate path for it and advances feeds exactly as under
	// SyncBlended.
	SyncOld
)

// EngineConfig bundles the options the engine driver exposes, plus the
// ambient runtime-environment knobs every trading config needs (TZ,
// MaxCPUs).
type EngineConfig struct {
	Preload     bool
	RunOnce     bool
	Live        bool
	MaxCPUs     int
	ExactBars   bar.ExactBarsMode
	CheatOnOpen bool
	BrokerCOO   bool // broker also sees cheat-on-open pricing
	QuickNotify bool
	OldSync     bool
	SyncMode    SyncMode
	TZ          *time.Location
	StartCash   float64
}

// Option mutates an EngineConfig during construction.
type Option func(*EngineConfig)

// Default returns the engine's baseline configuration: preload on, live
// off, blended sync, one CPU, UTC, $10,000 starting cash.
func Default() EngineConfig {
	return EngineConfig{
		Preload:   true,
		MaxCPUs:   1,
		ExactBars: bar.ExactBarsOff,
		SyncMode:  SyncBlended,
		TZ:        time.UTC,
		StartCash: 10000,
	}
}

// New builds an EngineConfig from Default() with the given options applied.
func New(opts ...Option) EngineConfig {
	c := Default()
	for _, o := range opts {
		o(&c)
	}
	if c.OldSync {
		c.SyncMode = SyncOld
	}
	return c
}

func WithPreload(v bool) Option     { return func(c *EngineConfig) { c.Preload = v } }
func WithRunOnce(v bool) Option     { return func(c *EngineConfig) { c.RunOnce = v } }
func WithLive(v bool) Option        { return func(c *EngineConfig) { c.Live = v } }
func WithMaxCPUs(n int) Option      { return func(c *EngineConfig) { c.MaxCPUs = n } }
func WithExactBars(m bar.ExactBarsMode) Option {
	return func(c *EngineConfig) { c.ExactBars = m }
}
func WithCheatOnOpen(v bool) Option { return func(c *EngineConfig) { c.CheatOnOpen = v } }
func WithBrokerCOO(v bool) Option   { return func(c *EngineConfig) { c.BrokerCOO = v } }
func WithQuickNotify(v bool) Option { return func(c *EngineConfig) { c.QuickNotify = v } }
func WithOldSync(v bool) Option {
	return func(c *EngineConfig) {
		c.OldSync = v
		if v {
			c.SyncMode = SyncOld
		} else {
			c.SyncMode = SyncBlended
		}
	}
}
func WithStartCash(v float64) Option { return func(c *EngineConfig) { c.StartCash = v } }

// FromEnv reads the process environment (already hydrated by LoadDotEnv)
// and overlays it onto Default().
func FromEnv() EngineConfig {
	c := Default()
	c.Preload = getEnvBool("ENGINE_PRELOAD", c.Preload)
	c.RunOnce = getEnvBool("ENGINE_RUNONCE", c.RunOnce)
	c.Live = getEnvBool("ENGINE_LIVE", c.Live)
	c.MaxCPUs = getEnvInt("ENGINE_MAXCPUS", c.MaxCPUs)
	c.ExactBars = bar.ExactBarsMode(getEnvInt("ENGINE_EXACTBARS", int(c.ExactBars)))
	c.CheatOnOpen = getEnvBool("ENGINE_CHEAT_ON_OPEN", c.CheatOnOpen)
	c.BrokerCOO = getEnvBool("ENGINE_BROKER_COO", c.BrokerCOO)
	c.QuickNotify = getEnvBool("ENGINE_QUICKNOTIFY", c.QuickNotify)
	c.OldSync = getEnvBool("ENGINE_OLDSYNC", c.OldSync)
	if c.OldSync {
		c.SyncMode = SyncOld
	}
	c.StartCash = getEnvFloat("ENGINE_START_CASH", c.StartCash)
	if tz := getEnv("ENGINE_TZ", ""); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			c.TZ = loc
		}
	}
	return c
}

// ---- env helpers ----

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// LoadDotEnv reads a .env file from "." and ".." and injects keys that
// aren't already set in the process environment, same dependency-free
// dependency-free approach: no shell exports required.
func LoadDotEnv() {
	try := func(path string) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()
		s := bufio.NewScanner(f)
		for s.Scan() {
			line := strings.TrimSpace(s.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "export ") {
				line = strings.TrimSpace(line[len("export "):])
			}
			eq := strings.Index(line, "=")
			if eq <= 0 {
				continue
			}
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
				val = val[1 : len(val)-1]
			}
			if idx := strings.IndexAny(val, "#"); idx >= 0 {
				val = strings.TrimSpace(val[:idx])
			}
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, val)
			}
		}
	}
	for _, base := range []string{".", ".."} {
		try(filepath.Join(base, ".env"))
	}
}
