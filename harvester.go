package main

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
)

// ErrNoInvoiceLink is returned by OrderCard.OpenInvoicePopover when the card
// offers no invoice (digital or free orders).
var ErrNoInvoiceLink = errors.New("order card has no invoice link")

// OrderSource is the order-history listing as the harvester walks it.
type OrderSource interface {
	// YearOptions returns the visible options of the year filter.
	YearOptions() ([]string, error)
	SelectYear(year string) error
	// Cards returns the order cards of the current result page in DOM order.
	Cards() ([]OrderCard, error)
	// NextPage moves to the next result page; false once pagination is exhausted.
	NextPage() bool
}

type OrderCard interface {
	HTML() (string, error)
	OpenInvoicePopover() error
	// InvoiceAnchors returns the invoice anchors of the visible pop-over.
	InvoiceAnchors() ([]InvoiceAnchor, error)
}

type InvoiceAnchor interface {
	Href() string
	// SaveAs triggers the download and stores the file at path.
	SaveAs(path string) error
}

// DownloadResult describes one attempted invoice download.
type DownloadResult struct {
	Seq  int
	Path string
	URL  string
	Err  error
}

// HarvestReport summarizes a run.
type HarvestReport struct {
	Years   []string
	Pages   int
	Orders  int
	Saved   []DownloadResult
	Failed  []DownloadResult
	Skipped int
}

// Harvester walks the order history for a date range and downloads every
// invoice PDF it finds, numbering saved files with its own Sequencer.
type Harvester struct {
	config    *Config
	locale    *SiteLocale
	dateRange DateRange
	source    OrderSource
	seq       Sequencer

	pause  func()
	verify func(path string) error
}

func NewHarvester(config *Config, locale *SiteLocale, dateRange DateRange, source OrderSource) *Harvester {
	return &Harvester{
		config:    config,
		locale:    locale,
		dateRange: dateRange,
		source:    source,
		pause:     func() {},
	}
}

func (h *Harvester) debugLog(format string, args ...interface{}) {
	if h.config.DebugMode {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

// Run processes all relevant years, newest first.
func (h *Harvester) Run() (*HarvestReport, error) {
	options, err := h.source.YearOptions()
	if err != nil {
		return nil, fmt.Errorf("could not read year filter: %w", err)
	}

	report := &HarvestReport{Years: RelevantYears(options, h.dateRange)}
	fmt.Printf("📅 Processing years: %v\n", report.Years)

	for _, year := range report.Years {
		fmt.Printf("\n🗂️  Processing year: %s\n", year)

		if err := h.source.SelectYear(year); err != nil {
			log.Printf("Warning: failed to select year %s: %v", year, err)
			continue
		}
		h.pause()

		h.harvestYear(report)
	}

	return report, nil
}

func (h *Harvester) harvestYear(report *HarvestReport) {
	for page := 1; ; page++ {
		if page > 1 {
			fmt.Println("➡️  Moving to next page...")
			if !h.source.NextPage() {
				fmt.Println("No more pages.")
				return
			}
			h.pause()
		}

		fmt.Printf("🔎 Analyzing page %d\n", page)
		report.Pages++

		cards, err := h.source.Cards()
		if err != nil {
			log.Printf("Warning: failed to read order cards on page %d: %v", page, err)
			return
		}
		fmt.Printf("Found %d orders on this page\n", len(cards))

		if done := h.harvestCards(cards, report); done {
			h.debugLog("Reached orders before %s, year done", h.dateRange.Start.Format("2006-01-02"))
			return
		}
	}
}

// harvestCards returns true once a card older than the range start is seen.
func (h *Harvester) harvestCards(cards []OrderCard, report *HarvestReport) bool {
	for i, card := range cards {
		markup, err := card.HTML()
		if err != nil {
			h.debugLog("Card %d: could not read markup: %v", i+1, err)
			report.Skipped++
			continue
		}

		result := ParseOrderCard(markup, h.locale)
		if result.Skipped() {
			h.debugLog("Card %d skipped: %s", i+1, result.Skip)
			report.Skipped++
			continue
		}

		order := result.Order
		if order.Date.After(h.dateRange.End) {
			h.debugLog("Order %s (%s) is after the range, skipping", order.ID, order.Date.Format("2006-01-02"))
			continue
		}
		if order.Date.Before(h.dateRange.Start) {
			return true
		}

		report.Orders++
		h.harvestInvoices(card, order, report)
	}
	return false
}

func (h *Harvester) harvestInvoices(card OrderCard, order Order, report *HarvestReport) {
	if err := card.OpenInvoicePopover(); err != nil {
		if errors.Is(err, ErrNoInvoiceLink) {
			h.debugLog("Order %s has no invoice link", order.ID)
		} else {
			log.Printf("Warning: could not open invoices for order %s: %v", order.ID, err)
		}
		return
	}
	h.pause()

	anchors, err := card.InvoiceAnchors()
	if err != nil {
		log.Printf("Warning: could not list invoices for order %s: %v", order.ID, err)
		return
	}

	for _, anchor := range anchors {
		if !IsInvoicePDF(anchor.Href()) {
			continue
		}

		result := h.download(order, anchor)
		if result.Err != nil {
			fmt.Printf("❌ Error downloading invoice: %v\n", result.Err)
			report.Failed = append(report.Failed, result)
			continue
		}
		report.Saved = append(report.Saved, result)
	}
}

func (h *Harvester) download(order Order, anchor InvoiceAnchor) DownloadResult {
	seq := h.seq.Next()
	result := DownloadResult{
		Seq:  seq,
		Path: InvoiceFileName(h.config.DownloadDir, order, h.locale.SiteTag, seq),
	}

	link, err := ResolveURL(h.locale.BaseURL, anchor.Href())
	if err != nil {
		result.Err = err
		return result
	}
	result.URL = link

	fmt.Printf("⬇️  Downloading invoice %03d for order %s (%s)\n", seq, order.ID, order.Date.Format("2006-01-02"))
	h.debugLog("Invoice URL: %s", link)

	if h.config.DryRun {
		h.seq.Commit()
		fmt.Printf("   [dry-run] would save %s\n", filepath.Base(result.Path))
		return result
	}

	err = anchor.SaveAs(result.Path)
	h.pause()
	if err != nil {
		result.Err = fmt.Errorf("invoice %s for order %s: %w", link, order.ID, err)
		return result
	}

	h.seq.Commit()
	fmt.Printf("✓ Saved: %s\n", filepath.Base(result.Path))

	if h.verify != nil {
		if err := h.verify(result.Path); err != nil {
			log.Printf("Warning: %s did not pass PDF validation: %v", filepath.Base(result.Path), err)
		}
	}

	return result
}
