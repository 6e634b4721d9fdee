package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

type Automation struct {
	config   *Config
	locale   *SiteLocale
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	rand     *rand.Rand
	stopChan chan bool
}

func NewAutomation(config *Config, locale *SiteLocale) *Automation {
	return &Automation{
		config:   config,
		locale:   locale,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		stopChan: make(chan bool, 1),
	}
}

func (a *Automation) Close() {
	select {
	case a.stopChan <- true:
	default:
	}

	fmt.Println("🧹 Cleaning up...")

	if a.page != nil {
		a.page.Close()
	}

	if a.browser != nil {
		a.browser.Close()
	}

	a.releaseLauncher()

	fmt.Println("✓ Browser closed")
}

// releaseLauncher stops the browser process. The user data dir is removed
// only when it is the launcher's own temporary one; a configured profile
// keeps the shop session for the next run.
func (a *Automation) releaseLauncher() {
	if a.launcher == nil {
		return
	}

	if a.config.BrowserProfilePath != "" {
		a.launcher.Kill()
		return
	}

	a.launcher.Cleanup()
}

func (a *Automation) isBrowserAlive() bool {
	if a.browser == nil {
		return false
	}

	_, err := a.browser.Version()
	if err != nil {
		a.debugLog("Browser version check failed: %v", err)
		return false
	}

	if a.page != nil {
		_, err := a.page.Info()
		if err != nil {
			a.debugLog("Page info check failed: %v", err)
			return false
		}
	}

	return true
}

func (a *Automation) checkBrowserOrExit() {
	if !a.isBrowserAlive() {
		fmt.Println("\n⚠️  Browser was closed by the user")
		fmt.Println("Shutting down...")
		os.Exit(0)
	}
}

func (a *Automation) watchBrowser() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			return
		case <-ticker.C:
			a.checkBrowserOrExit()
		}
	}
}

// randomDelay sleeps a uniformly random duration between the configured
// bounds to pace interactions like a person would.
func (a *Automation) randomDelay() {
	min := a.config.MinDelayBetween
	max := a.config.MaxDelayBetween
	if max < min {
		max = min
	}
	duration := min + a.rand.Float64()*(max-min)

	a.debugLog("Waiting %.1fs", duration)
	time.Sleep(time.Duration(duration * float64(time.Second)))
}

func (a *Automation) debugLog(format string, args ...interface{}) {
	if a.config.DebugMode {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

func (a *Automation) setupBrowser() error {
	fmt.Println("🚀 Launching browser...")

	// Disable leakless mode on Windows to prevent deadlock
	// See: https://github.com/go-rod/rod/issues/853
	useLeakless := runtime.GOOS != "windows"

	// Prefer system Chrome (avoids download and permission issues)
	chromePath, chromeExists := launcher.LookPath()

	a.launcher = launcher.New().
		Leakless(useLeakless).
		Headless(a.config.Headless)

	// Must be set before Bin() to be applied
	if a.config.BrowserProfilePath != "" {
		a.launcher = a.launcher.UserDataDir(a.config.BrowserProfilePath)
		a.debugLog("Browser profile: %s", a.config.BrowserProfilePath)
	}

	if chromeExists {
		a.launcher = a.launcher.Bin(chromePath)
		fmt.Println("✓ Using system Chrome browser")
		a.debugLog("Chrome path: %s", chromePath)
	} else {
		fmt.Println("⚠️  System Chrome not found, downloading Chromium...")
	}

	url, err := a.launcher.Launch()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Opening in existing browser session") ||
			strings.Contains(errMsg, "ProcessSingleton") ||
			strings.Contains(errMsg, "SingletonLock") {
			fmt.Println("\n❌ The browser profile is already in use by a running Chrome.")
			fmt.Println("   Close all Chrome windows using this profile and try again.")
			return fmt.Errorf("browser profile already in use: %w", err)
		}

		return fmt.Errorf("failed to launch browser: %w", err)
	}

	a.browser = rod.New().ControlURL(url)
	if err := a.browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	go a.watchBrowser()
	a.debugLog("Browser watcher started")

	fmt.Println("✓ Browser launched")
	return nil
}

func (a *Automation) openPage() error {
	var err error
	a.page, err = stealth.Page(a.browser)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}

	a.debugLog("Stealth mode enabled")

	err = a.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: "de-DE,de;q=0.9",
	})
	if err != nil {
		a.debugLog("Warning: Failed to set User-Agent: %v", err)
	}

	if a.config.ViewportWidth > 0 && a.config.ViewportHeight > 0 {
		err = a.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             a.config.ViewportWidth,
			Height:            a.config.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			a.debugLog("Warning: Failed to set viewport: %v", err)
		}
	}

	return nil
}

// bounded returns the page with a deadline, or the page itself for seconds <= 0.
func (a *Automation) bounded(secs int) *rod.Page {
	if secs <= 0 {
		return a.page
	}
	return a.page.Timeout(seconds(secs))
}

// altClick clicks el while holding Alt, which makes the shop serve the invoice
// as a download instead of opening it in a tab.
func (a *Automation) altClick(el *rod.Element) error {
	if err := a.page.Keyboard.Press(input.AltLeft); err != nil {
		return fmt.Errorf("failed to press Alt: %w", err)
	}
	defer a.page.Keyboard.Release(input.AltLeft)

	return el.Click(proto.InputMouseButtonLeft, 1)
}

// saveDownload runs trigger, waits for the browser download it starts and
// moves the finished file to target.
func (a *Automation) saveDownload(trigger func() error, target string) error {
	dir := filepath.Dir(target)

	ctx, cancel := context.WithTimeout(context.Background(), seconds(a.config.DownloadTimeout))
	defer cancel()

	wait := a.browser.Context(ctx).WaitDownload(dir)

	if err := trigger(); err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}

	info := wait()
	if info == nil {
		return fmt.Errorf("download did not complete within %ds", a.config.DownloadTimeout)
	}
	if ctx.Err() != nil {
		discardDownload(dir, info.GUID)
		return fmt.Errorf("download did not complete within %ds", a.config.DownloadTimeout)
	}

	if err := storeDownload(dir, info.GUID, target); err != nil {
		return err
	}

	a.debugLog("Download %s (%s) stored", info.GUID, info.SuggestedFilename)
	return nil
}

// storeDownload moves the browser's GUID-named file in dir to target. On
// failure the partial file is removed so only named invoices stay in dir.
func storeDownload(dir, guid, target string) error {
	if err := os.Rename(filepath.Join(dir, guid), target); err != nil {
		discardDownload(dir, guid)
		return fmt.Errorf("failed to store download: %w", err)
	}
	return nil
}

func discardDownload(dir, guid string) {
	if guid == "" {
		return
	}
	if err := os.Remove(filepath.Join(dir, guid)); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not remove partial download %s: %v", guid, err)
	}
}

// isTimeoutError reports whether err comes from a bounded wait running out.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "timeout")
}
