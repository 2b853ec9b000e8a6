package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	c := Default()
	c.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	c.LogDir = filepath.Join(t.TempDir(), "logs")
	if err := c.Validate(); err != nil {
		t.Fatalf("Default() should validate cleanly: %v", err)
	}
}

func TestValidateRejectsZeroParallelism(t *testing.T) {
	c := Default()
	c.MaxParallelDownloads = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for MaxParallelDownloads = 0")
	}
}

func TestValidateClampsPerHostAboveTotal(t *testing.T) {
	c := Default()
	c.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	c.LogDir = filepath.Join(t.TempDir(), "logs")
	c.MaxParallelDownloads = 4
	c.MaxParallelPerHost = 100
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.MaxParallelPerHost != 4 {
		t.Errorf("MaxParallelPerHost = %d, want clamped to 4", c.MaxParallelPerHost)
	}
}

func TestValidateRejectsEmptyUserAgent(t *testing.T) {
	c := Default()
	c.UserAgent = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error for empty UserAgent")
	}
}

func TestValidateCreatesDirectories(t *testing.T) {
	base := t.TempDir()
	c := Default()
	c.DownloadDir = filepath.Join(base, "nested", "downloads")
	c.LogDir = filepath.Join(base, "nested", "logs")
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsEmptyFilenamePattern(t *testing.T) {
	c := Default()
	c.FilenamePattern = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error for empty FilenamePattern")
	}
}

func TestValidateDefaultsEmptyAspellDictionaries(t *testing.T) {
	c := Default()
	c.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	c.LogDir = filepath.Join(t.TempDir(), "logs")
	c.AspellDictionaries = nil
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(c.AspellDictionaries) == 0 {
		t.Error("expected AspellDictionaries to be defaulted, got empty")
	}
}
