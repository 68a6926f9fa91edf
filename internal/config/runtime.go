package config

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Memory Mode
// ---------------------------------------------------------------------------

// MemoryMode selects a preset of Go runtime limits for small hosts.
type MemoryMode int

const (
	// MemoryModeNormal leaves the runtime defaults alone.
	MemoryModeNormal MemoryMode = iota

	// MemoryModeReduced suits roughly 512MB of RAM.
	MemoryModeReduced

	// MemoryModeAggressive suits 256MB of RAM or less.
	MemoryModeAggressive
)

func (m MemoryMode) String() string {
	switch m {
	case MemoryModeNormal:
		return "normal"
	case MemoryModeReduced:
		return "reduced"
	case MemoryModeAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// ParseMemoryMode parses a memory mode name. The empty string means normal.
func ParseMemoryMode(s string) (MemoryMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return MemoryModeNormal, true
	case "reduced":
		return MemoryModeReduced, true
	case "aggressive":
		return MemoryModeAggressive, true
	}
	return MemoryModeNormal, false
}

// ---------------------------------------------------------------------------
// Runtime Settings
// ---------------------------------------------------------------------------

// RuntimeSettings tunes the Go runtime at startup. Explicit values win over
// the memory mode preset; zero means "use the preset".
type RuntimeSettings struct {
	MemoryMode    string `mapstructure:"memory_mode"`
	MemoryLimitMB int    `mapstructure:"memory_limit_mb"`
	GCPercent     int    `mapstructure:"gc_percent"`
	MaxProcs      int    `mapstructure:"max_procs"`
}

// runtimePreset is the set of limits a memory mode implies.
type runtimePreset struct {
	MemoryLimitMB int
	GCPercent     int
	MaxProcs      int
}

var presets = map[MemoryMode]runtimePreset{
	MemoryModeNormal:     {},
	MemoryModeReduced:    {MemoryLimitMB: 512, GCPercent: 50, MaxProcs: 1},
	MemoryModeAggressive: {MemoryLimitMB: 256, GCPercent: 20, MaxProcs: 1},
}

// Effective merges the preset of the configured mode with explicit values.
func (r RuntimeSettings) Effective() RuntimeSettings {
	mode, _ := ParseMemoryMode(r.MemoryMode)
	p := presets[mode]

	out := RuntimeSettings{MemoryMode: mode.String()}
	out.MemoryLimitMB = pick(r.MemoryLimitMB, p.MemoryLimitMB)
	out.GCPercent = pick(r.GCPercent, p.GCPercent)
	out.MaxProcs = pick(r.MaxProcs, p.MaxProcs)
	return out
}

func pick(explicit, preset int) int {
	if explicit > 0 {
		return explicit
	}
	return preset
}

// Apply installs the effective limits into the running process and returns
// them.
func (r RuntimeSettings) Apply() RuntimeSettings {
	eff := r.Effective()

	if eff.MaxProcs > 0 {
		runtime.GOMAXPROCS(eff.MaxProcs)
	}
	if eff.GCPercent > 0 {
		debug.SetGCPercent(eff.GCPercent)
	}
	if eff.MemoryLimitMB > 0 {
		debug.SetMemoryLimit(int64(eff.MemoryLimitMB) * 1024 * 1024)
	}
	return eff
}

// MonitorInterval is how often heap usage is sampled. Tighter modes sample
// more often.
func (r RuntimeSettings) MonitorInterval() time.Duration {
	mode, _ := ParseMemoryMode(r.MemoryMode)
	switch mode {
	case MemoryModeAggressive:
		return 2 * time.Second
	case MemoryModeReduced:
		return 3 * time.Second
	default:
		return 5 * time.Second
	}
}
