package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envEmail       = "ACCOUNT_EMAIL"
	envPassword    = "ACCOUNT_PASSWORD"
	envDownloadDir = "DOWNLOAD_DIR"
)

type Config struct {
	// Credentials only ever come from the environment.
	Email    string `yaml:"-"`
	Password string `yaml:"-"`

	DownloadDir string `yaml:"download_dir"`

	// Inclusive YYYY-MM-DD bounds; empty means the current calendar year.
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`

	BrowserProfilePath string `yaml:"browser_profile_path"`
	SiteLocaleFile     string `yaml:"site_locale_file"`

	PageLoadTimeout   int     `yaml:"page_load_timeout"`
	LoginWaitTimeout  int     `yaml:"login_wait_timeout"`
	NavTimeout        int     `yaml:"nav_timeout"`
	RememberMeTimeout int     `yaml:"remember_me_timeout"`
	NextPageTimeout   int     `yaml:"next_page_timeout"`
	DownloadTimeout   int     `yaml:"download_timeout"`
	MinDelayBetween   float64 `yaml:"min_delay_between"`
	MaxDelayBetween   float64 `yaml:"max_delay_between"`

	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	Headless        bool `yaml:"headless"`
	KeepBrowserOpen bool `yaml:"keep_browser_open"`

	VerifyPDFs bool `yaml:"verify_pdfs"`
	StrictExit bool `yaml:"strict_exit"`
	DryRun     bool `yaml:"dry_run"`
	DebugMode  bool `yaml:"debug_mode"`

	Notify NotifyConfig `yaml:"notify"`

	Selectors SelectorConfig `yaml:"selectors"`
}

type SelectorConfig struct {
	OrderCard      string `yaml:"order_card"`
	YearFilter     string `yaml:"year_filter"`
	YearFilterForm string `yaml:"year_filter_form"`
	NextPage       string `yaml:"next_page"`
	PopoverContent string `yaml:"popover_content"`
}

type NotifyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SMTPServer     string `yaml:"smtp_server"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUser       string `yaml:"smtp_user"`
	SMTPPass       string `yaml:"smtp_pass"`
	FromEmail      string `yaml:"from_email"`
	ToEmail        string `yaml:"to_email"`
	AttachInvoices bool   `yaml:"attach_invoices"`
}

func DefaultConfig() *Config {
	userDataDir := getUserDataDir()

	return &Config{
		DownloadDir:        "./downloads",
		BrowserProfilePath: filepath.Join(userDataDir, "browser-profile"),
		PageLoadTimeout:    30,
		LoginWaitTimeout:   0,
		NavTimeout:         10,
		RememberMeTimeout:  5,
		NextPageTimeout:    5,
		DownloadTimeout:    60,
		MinDelayBetween:    2.0,
		MaxDelayBetween:    5.0,
		ViewportWidth:      1920,
		ViewportHeight:     1080,
		Headless:           false,
		KeepBrowserOpen:    false,
		VerifyPDFs:         false,
		StrictExit:         false,
		DryRun:             false,
		DebugMode:          false,
		Notify: NotifyConfig{
			Enabled:        false,
			SMTPPort:       587,
			AttachInvoices: true,
		},
		Selectors: SelectorConfig{
			OrderCard:      ".order-card",
			YearFilter:     "select#time-filter",
			YearFilterForm: `form[action="/your-orders/orders"] select#time-filter`,
			NextPage:       ".a-last a",
			PopoverContent: "a-popover-content",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.BrowserProfilePath != "" {
		if err := os.MkdirAll(config.BrowserProfilePath, 0755); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv loads envFile (if present) into the process environment and then
// takes credentials and the download directory from it. Variables already set
// in the environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	c.Email = os.Getenv(envEmail)
	c.Password = os.Getenv(envPassword)

	if dir := os.Getenv(envDownloadDir); dir != "" {
		c.DownloadDir = dir
	}

	return nil
}

// HasCredentials reports whether any login value was provided.
func (c *Config) HasCredentials() bool {
	return c.Email != "" || c.Password != ""
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
