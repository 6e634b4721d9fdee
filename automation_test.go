package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

func newTestAutomation(t *testing.T, config *Config) *Automation {
	t.Helper()

	locale, err := LoadSiteLocale("")
	if err != nil {
		t.Fatalf("LoadSiteLocale() error = %v", err)
	}
	return NewAutomation(config, locale)
}

func TestNewAutomation(t *testing.T) {
	config := DefaultConfig()
	automation := newTestAutomation(t, config)

	if automation == nil {
		t.Fatal("NewAutomation returned nil")
	}

	if automation.config != config {
		t.Error("Automation config does not match provided config")
	}

	if automation.locale == nil || automation.locale.SiteTag != "amazon" {
		t.Error("Automation locale not set")
	}

	if automation.rand == nil {
		t.Error("Random number generator not initialized")
	}

	if automation.stopChan == nil {
		t.Error("Stop channel not initialized")
	}
}

func TestRandomDelay(t *testing.T) {
	config := DefaultConfig()
	config.MinDelayBetween = 0.1
	config.MaxDelayBetween = 0.2
	automation := newTestAutomation(t, config)

	start := time.Now()
	automation.randomDelay()
	elapsed := time.Since(start)

	// Check that delay is within expected range (100-200ms)
	if elapsed < 100*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("randomDelay() took %v, expected between 100ms and 300ms", elapsed)
	}
}

func TestRandomDelayInvertedBounds(t *testing.T) {
	config := DefaultConfig()
	config.MinDelayBetween = 0.05
	config.MaxDelayBetween = 0.01
	automation := newTestAutomation(t, config)

	start := time.Now()
	automation.randomDelay()
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Errorf("randomDelay() took %v, expected about 50ms", elapsed)
	}
}

func TestDebugLog(t *testing.T) {
	config := DefaultConfig()
	automation := newTestAutomation(t, config)

	// This should not panic
	automation.debugLog("Test message: %s", "test")

	config.DebugMode = true
	automation.debugLog("Debug enabled: %d", 42)
}

func TestIsBrowserAlive(t *testing.T) {
	automation := newTestAutomation(t, DefaultConfig())

	// Without a browser, should return false
	if automation.isBrowserAlive() {
		t.Error("isBrowserAlive() should return false when browser is nil")
	}
}

func TestIsTimeoutError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("element: %w", context.DeadlineExceeded), true},
		{"navigation timeout", errors.New("navigation timeout"), true},
		{"other", errors.New("element not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTimeoutError(tt.err); got != tt.want {
				t.Errorf("isTimeoutError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCloseWithoutBrowser(t *testing.T) {
	automation := newTestAutomation(t, DefaultConfig())

	// Close must be safe before setupBrowser and when called twice.
	automation.Close()
	automation.Close()
}

func TestCloseKeepsPersistentProfile(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "browser-profile")
	if err := os.MkdirAll(profile, 0755); err != nil {
		t.Fatal(err)
	}
	cookies := filepath.Join(profile, "Cookies")
	if err := os.WriteFile(cookies, []byte("session"), 0644); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	config.BrowserProfilePath = profile
	automation := newTestAutomation(t, config)
	automation.launcher = launcher.New().UserDataDir(profile)

	automation.Close()

	if _, err := os.Stat(cookies); err != nil {
		t.Errorf("Browser profile should survive Close(): %v", err)
	}
}

func TestStoreDownload(t *testing.T) {
	dir := t.TempDir()
	guid := "5f1c2a7e-guid"
	if err := os.WriteFile(filepath.Join(dir, guid), []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "20240103_10,00_amazon_A1_001.pdf")
	if err := storeDownload(dir, guid, target); err != nil {
		t.Fatalf("storeDownload() error = %v", err)
	}

	if _, err := os.Stat(target); err != nil {
		t.Errorf("Expected invoice at target: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, guid)); !os.IsNotExist(err) {
		t.Error("GUID file should be gone after the move")
	}
}

func TestStoreDownloadFailureRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	guid := "9b0d-partial"
	if err := os.WriteFile(filepath.Join(dir, guid), []byte("%PDF-1."), 0644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "missing-subdir", "invoice.pdf")
	if err := storeDownload(dir, guid, target); err == nil {
		t.Fatal("storeDownload() into a missing directory should fail")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Partial download left behind: %v", entries[0].Name())
	}

	// Discarding an already removed file is quiet.
	discardDownload(dir, guid)
	discardDownload(dir, "")
}

func TestBoundedPageDeadline(t *testing.T) {
	automation := newTestAutomation(t, DefaultConfig())
	automation.page = (&rod.Page{}).Context(context.Background())

	if _, ok := automation.bounded(5).GetContext().Deadline(); !ok {
		t.Error("bounded(5) should carry a deadline")
	}
	if _, ok := automation.bounded(0).GetContext().Deadline(); ok {
		t.Error("bounded(0) should not carry a deadline")
	}
}
