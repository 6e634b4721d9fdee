package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// exitNavigationFailed is used with -strict when the order history cannot be reached.
const exitNavigationFailed = 2

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file with ACCOUNT_EMAIL, ACCOUNT_PASSWORD and DOWNLOAD_DIR")
	start := flag.String("start", "", "First order date to include (YYYY-MM-DD, overrides config)")
	end := flag.String("end", "", "Last order date to include (YYYY-MM-DD, overrides config)")
	year := flag.Int("year", 0, "Download a whole calendar year (overrides -start/-end)")
	headless := flag.Bool("headless", false, "Run the browser without a window")
	debug := flag.Bool("debug", false, "Enable detailed debug logging")
	strict := flag.Bool("strict", false, "Exit non-zero when the order history cannot be reached")
	dryRun := flag.Bool("dry-run", false, "Walk the order history without downloading anything")
	flag.Parse()

	checkUserDataDirPermissions()

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := config.ApplyEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	if *start != "" {
		config.StartDate = *start
	}
	if *end != "" {
		config.EndDate = *end
	}
	if *year != 0 {
		config.StartDate = strconv.Itoa(*year) + "-01-01"
		config.EndDate = strconv.Itoa(*year) + "-12-31"
	}
	if *headless {
		config.Headless = true
	}
	if *debug {
		config.DebugMode = true
	}
	if *strict {
		config.StrictExit = true
	}
	if *dryRun {
		config.DryRun = true
	}

	locale, err := LoadSiteLocale(config.SiteLocaleFile)
	if err != nil {
		log.Fatalf("Failed to load site locale: %v", err)
	}

	dateRange, err := NewDateRange(config.StartDate, config.EndDate, time.Now())
	if err != nil {
		log.Fatalf("Invalid date range: %v", err)
	}

	downloadDir, err := filepath.Abs(config.DownloadDir)
	if err != nil {
		log.Fatalf("Invalid download directory %s: %v", config.DownloadDir, err)
	}
	config.DownloadDir = downloadDir

	if err := os.MkdirAll(config.DownloadDir, 0755); err != nil {
		log.Fatalf("Failed to create download directory: %v", err)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                 Amazon Invoice Downloader                 ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Shop: %s\n", locale.BaseURL)
	fmt.Printf("Date range: %s\n", dateRange)
	fmt.Printf("Download directory: %s\n", config.DownloadDir)
	fmt.Printf("Browser Profile: %s\n", config.BrowserProfilePath)

	if config.DryRun {
		fmt.Println("🧪 DRY RUN MODE - Invoices are listed but not downloaded")
	}
	if config.DebugMode {
		fmt.Println("🔍 DEBUG MODE - Detailed logging enabled")
	}
	if !config.HasCredentials() {
		fmt.Printf("ℹ️  %s / %s not set, sign in manually in the browser window\n", envEmail, envPassword)
	}
	fmt.Println()

	automation := NewAutomation(config, locale)
	defer automation.Close()

	if err := automation.setupBrowser(); err != nil {
		log.Fatalf("Failed to setup browser: %v", err)
	}

	if err := automation.openHomepage(); err != nil {
		log.Fatalf("Failed to open homepage: %v", err)
	}

	if err := automation.login(); err != nil {
		log.Fatalf("Failed to sign in: %v", err)
	}

	if err := automation.navigateToOrders(); err != nil {
		fmt.Printf("\n❌ %v\n", err)
		fmt.Println("   Check that you are signed in and that the page shows the account menu.")
		fmt.Println("   Run with -debug to see which links were tried.")
		if config.StrictExit {
			automation.Close()
			os.Exit(exitNavigationFailed)
		}
		return
	}

	harvester := NewHarvester(config, locale, dateRange, newRodOrderSource(automation))
	harvester.pause = automation.randomDelay
	if config.VerifyPDFs {
		harvester.verify = verifyPDF
	}

	report, err := harvester.Run()
	if err != nil {
		fmt.Printf("\n❌ %v\n", err)
		return
	}

	fmt.Println()
	fmt.Printf("✓ Download complete! Downloaded %d invoices to %s\n", len(report.Saved), config.DownloadDir)
	if len(report.Failed) > 0 {
		fmt.Printf("⚠️  %d invoices failed to download\n", len(report.Failed))
	}
	fmt.Println()

	if err := NewNotifySender(config.Notify).Send(report, dateRange, config.DryRun); err != nil {
		log.Printf("Warning: failed to send summary email: %v", err)
	}

	if config.KeepBrowserOpen {
		fmt.Println("Keeping browser open for 30 seconds...")
		time.Sleep(30 * time.Second)
	}
}

// Store init error for later display
var initUserDataDirError error

func init() {
	userDataDir := getUserDataDir()
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		initUserDataDirError = err
	}
}

func checkUserDataDirPermissions() {
	if initUserDataDirError != nil {
		userDataDir := getUserDataDir()
		// Check if this is a macOS permission issue
		if runtime.GOOS == "darwin" && strings.Contains(initUserDataDirError.Error(), "operation not permitted") {
			fmt.Println("⚠️  macOS blocked access to the data directory")
			fmt.Printf("   Location: %s\n", userDataDir)
			fmt.Println("   Grant your terminal Full Disk Access in System Settings > Privacy & Security,")
			fmt.Println("   or set browser_profile_path in config.yaml to a directory you own.")
			fmt.Println()
		}
		log.Printf("Warning: could not create user data directory: %v", initUserDataDirError)
	}
}

func getUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./invoice-downloader-data"
	}
	return filepath.Join(home, ".invoice-downloader")
}
