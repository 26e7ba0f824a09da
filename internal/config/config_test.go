package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
log_dir: /var/log/copier
ecosystem_path: /etc/copier/ecosystem.json
telegram:
  channel_id: "-100123"
  admin_id: "42"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if c.FilePrefix != "TradeCopier" {
		t.Errorf("FilePrefix = %q", c.FilePrefix)
	}
	if c.Intervals.RescanSeconds != 60 || c.Intervals.FlushSeconds != 10 {
		t.Errorf("interval defaults: %+v", c.Intervals)
	}
	if c.Health.StaleAfterSeconds != 120 || c.Health.RealertSeconds != 300 {
		t.Errorf("health defaults: %+v", c.Health)
	}
	if c.DedupeWindowSecs != 10 {
		t.Errorf("DedupeWindowSecs = %d", c.DedupeWindowSecs)
	}
	if c.Telegram.APIBase != "https://api.telegram.org" {
		t.Errorf("APIBase = %q", c.Telegram.APIBase)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
log_dir: /from/yaml
telegram:
  admin_id: "1"
`)
	t.Setenv("LOG_DIRECTORY_PATH", "/from/env")
	t.Setenv("ADMIN_ID", "99")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.LogDir != "/from/env" {
		t.Errorf("LogDir = %q, env must win", c.LogDir)
	}
	if c.Telegram.AdminID != "99" {
		t.Errorf("AdminID = %q, env must win", c.Telegram.AdminID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
