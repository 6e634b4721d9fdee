package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lang/de_DE.yaml
var defaultSiteLocale []byte

// SiteLocale holds the vocabulary of the shop's markup: month names used in
// order dates, the visible labels the workflow clicks on and the number format
// of displayed totals.
type SiteLocale struct {
	BaseURL            string      `yaml:"base_url"`
	SiteTag            string      `yaml:"site_tag"`
	CurrencyMarker     string      `yaml:"currency_marker"`
	DecimalSeparator   string      `yaml:"decimal_separator"`
	ThousandsSeparator string      `yaml:"thousands_separator"`
	Months             []string    `yaml:"months"`
	Labels             LabelConfig `yaml:"labels"`
}

type LabelConfig struct {
	LoginEntry          string `yaml:"login_entry"`
	SignedInGreeting    string `yaml:"signed_in_greeting"`
	EmailField          string `yaml:"email_field"`
	ContinueButton      string `yaml:"continue_button"`
	PasswordField       string `yaml:"password_field"`
	RememberMe          string `yaml:"remember_me"`
	SignInButton        string `yaml:"sign_in_button"`
	OrdersLinkPrimary   string `yaml:"orders_link_primary"`
	OrdersLinkSecondary string `yaml:"orders_link_secondary"`
	OrdersHrefFragment  string `yaml:"orders_href_fragment"`
	Invoice             string `yaml:"invoice"`
}

// LoadSiteLocale reads a locale file, or the built-in amazon.de vocabulary when
// path is empty.
func LoadSiteLocale(path string) (*SiteLocale, error) {
	data := defaultSiteLocale
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", path, err)
		}
	}

	var l SiteLocale
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse locale file: %w", err)
	}

	if err := l.validate(); err != nil {
		return nil, err
	}

	return &l, nil
}

func (l *SiteLocale) validate() error {
	if len(l.Months) != 12 {
		return fmt.Errorf("locale must list 12 month names, got %d", len(l.Months))
	}
	if l.BaseURL == "" {
		return fmt.Errorf("locale is missing base_url")
	}
	if l.SiteTag == "" {
		return fmt.Errorf("locale is missing site_tag")
	}
	if l.CurrencyMarker == "" || l.DecimalSeparator == "" {
		return fmt.Errorf("locale is missing currency format")
	}
	if l.Labels.Invoice == "" {
		return fmt.Errorf("locale is missing the invoice label")
	}
	return nil
}

// MentionsMonth reports whether text contains any localized month name.
func (l *SiteLocale) MentionsMonth(text string) bool {
	for _, m := range l.Months {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Month returns the month number (1-12) for an exact localized month name, or 0.
func (l *SiteLocale) Month(name string) int {
	for i, m := range l.Months {
		if m == name {
			return i + 1
		}
	}
	return 0
}
