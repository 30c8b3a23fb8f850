// Package yxconfig is the optional, ambient configuration loader: it reads
// a YAML file plus environment overrides into a yx.Config. The core yx
// package never imports this — it exists only for cmd/yxctl and any other
// external harness that wants file/env-driven configuration instead of
// constructing a yx.Config by hand.
//
// Grounded on orbas1-Synnergy's pkg/config loader idiom: spf13/viper with
// AutomaticEnv, a "YX_" prefix, and mapstructure tags on a plain struct.
package yxconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ScottYelich/yx"
)

// fileConfig mirrors yx.Config with mapstructure tags; viper decodes into
// this, then Load copies the fields across so yx.Config itself stays free
// of any serialization-library dependency.
type fileConfig struct {
	ListenPort            int     `mapstructure:"listen_port"`
	ListenAddr            string  `mapstructure:"listen_addr"`
	Broadcast             bool    `mapstructure:"broadcast"`
	ReusePort             bool    `mapstructure:"reuse_port"`
	ProcessOwnPackets     bool    `mapstructure:"process_own_packets"`
	ChunkSize             int     `mapstructure:"chunk_size"`
	BufferTimeout         float64 `mapstructure:"buffer_timeout"`
	DedupWindow           float64 `mapstructure:"dedup_window"`
	ReplayMaxAge          float64 `mapstructure:"replay_max_age"`
	ReplayCleanupInterval int     `mapstructure:"replay_cleanup_interval"`
	MaxRequests           int     `mapstructure:"max_requests"`
	WindowSeconds         float64 `mapstructure:"window_seconds"`
	FailureLogPath        string  `mapstructure:"failure_log_path"`
}

// Load reads configPath (if non-empty) as YAML, overlays "YX_"-prefixed
// environment variables, and returns a validated yx.Config. Every field
// left unset in the file and environment keeps yx.DefaultConfig's value.
func Load(configPath string) (yx.Config, error) {
	def := yx.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("YX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, def)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return yx.Config{}, fmt.Errorf("yxconfig: read %s: %w", configPath, err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return yx.Config{}, fmt.Errorf("yxconfig: decode: %w", err)
	}

	cfg := yx.Config{
		ListenPort:            fc.ListenPort,
		ListenAddr:            fc.ListenAddr,
		Broadcast:             fc.Broadcast,
		ReusePort:             fc.ReusePort,
		ProcessOwnPackets:     fc.ProcessOwnPackets,
		ChunkSize:             fc.ChunkSize,
		BufferTimeout:         fc.BufferTimeout,
		DedupWindow:           fc.DedupWindow,
		ReplayMaxAge:          fc.ReplayMaxAge,
		ReplayCleanupInterval: fc.ReplayCleanupInterval,
		MaxRequests:           fc.MaxRequests,
		WindowSeconds:         fc.WindowSeconds,
		FailureLogPath:        fc.FailureLogPath,
	}

	if err := cfg.Validate(); err != nil {
		return yx.Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, def yx.Config) {
	v.SetDefault("listen_port", def.ListenPort)
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("broadcast", def.Broadcast)
	v.SetDefault("reuse_port", def.ReusePort)
	v.SetDefault("process_own_packets", def.ProcessOwnPackets)
	v.SetDefault("chunk_size", def.ChunkSize)
	v.SetDefault("buffer_timeout", def.BufferTimeout)
	v.SetDefault("dedup_window", def.DedupWindow)
	v.SetDefault("replay_max_age", def.ReplayMaxAge)
	v.SetDefault("replay_cleanup_interval", def.ReplayCleanupInterval)
	v.SetDefault("max_requests", def.MaxRequests)
	v.SetDefault("window_seconds", def.WindowSeconds)
	v.SetDefault("failure_log_path", def.FailureLogPath)
}
