package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Telegram struct {
	APIBase   string `yaml:"api_base"`
	ChannelID string `yaml:"channel_id"`
	AdminID   string `yaml:"admin_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type Intervals struct {
	RescanSeconds    int `yaml:"rescan_seconds"`
	FlushSeconds     int `yaml:"flush_seconds"`
	HealthSeconds    int `yaml:"health_seconds"`
	SnapshotSeconds  int `yaml:"snapshot_seconds"`
	HeartbeatSeconds int `yaml:"heartbeat_seconds"`
}

type Health struct {
	StaleAfterSeconds int `yaml:"stale_after_seconds"`
	RealertSeconds    int `yaml:"realert_seconds"`
}

type Root struct {
	LogDir           string    `yaml:"log_dir"`
	FilePrefix       string    `yaml:"file_prefix"`
	EcosystemPath    string    `yaml:"ecosystem_path"`
	StateDir         string    `yaml:"state_dir"`
	LedgerPath       string    `yaml:"ledger_path"`
	WatcherLogPath   string    `yaml:"watcher_log_path"`
	DedupeWindowSecs int       `yaml:"dedupe_window_seconds"`
	Intervals        Intervals `yaml:"intervals"`
	Health           Health    `yaml:"health"`
	Telegram         Telegram  `yaml:"telegram"`
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}

	if c.FilePrefix == "" {
		c.FilePrefix = "TradeCopier"
	}
	if c.StateDir == "" {
		c.StateDir = "data"
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "data/trades.db"
	}
	if c.WatcherLogPath == "" {
		c.WatcherLogPath = "data/watcher.log"
	}
	if c.DedupeWindowSecs == 0 {
		c.DedupeWindowSecs = 10
	}
	if c.Intervals.RescanSeconds == 0 {
		c.Intervals.RescanSeconds = 60
	}
	if c.Intervals.FlushSeconds == 0 {
		c.Intervals.FlushSeconds = 10
	}
	if c.Intervals.HealthSeconds == 0 {
		c.Intervals.HealthSeconds = 60
	}
	if c.Intervals.SnapshotSeconds == 0 {
		c.Intervals.SnapshotSeconds = 15
	}
	if c.Intervals.HeartbeatSeconds == 0 {
		c.Intervals.HeartbeatSeconds = 300
	}
	if c.Health.StaleAfterSeconds == 0 {
		c.Health.StaleAfterSeconds = 120
	}
	if c.Health.RealertSeconds == 0 {
		c.Health.RealertSeconds = 300
	}
	if c.Telegram.APIBase == "" {
		c.Telegram.APIBase = "https://api.telegram.org"
	}
	if c.Telegram.TimeoutMs == 0 {
		c.Telegram.TimeoutMs = 10000
	}

	// Secrets and host-specific paths come from the environment, never
	// from the YAML file.
	if v := os.Getenv("LOG_DIRECTORY_PATH"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("ECOSYSTEM_PATH"); v != "" {
		c.EcosystemPath = v
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		c.Telegram.ChannelID = v
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		c.Telegram.AdminID = v
	}

	return c, nil
}
