package main

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Sequencer hands out the run-wide invoice numbers embedded in filenames.
// A number is only consumed once the download it was reserved for succeeds,
// so saved files are numbered 001, 002, ... without gaps.
type Sequencer struct {
	last int
}

// Next returns the number the next successful download will carry.
func (s *Sequencer) Next() int {
	return s.last + 1
}

// Commit consumes the number returned by Next.
func (s *Sequencer) Commit() int {
	s.last++
	return s.last
}

// Count is the number of committed downloads.
func (s *Sequencer) Count() int {
	return s.last
}

// IsInvoicePDF reports whether an invoice href points at a PDF document.
func IsInvoicePDF(href string) bool {
	return strings.Contains(strings.ToLower(href), ".pdf")
}

// ResolveURL makes a relative href absolute against baseURL.
func ResolveURL(baseURL, href string) (string, error) {
	if strings.HasPrefix(href, "http") {
		return href, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %s: %w", baseURL, err)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %s: %w", href, err)
	}

	return base.ResolveReference(ref).String(), nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-", " ", "",
)

// InvoiceFileName composes {dir}/{YYYYMMDD}_{total}_{tag}_{orderID}_{seq:03}.pdf.
func InvoiceFileName(dir string, order Order, siteTag string, seq int) string {
	name := fmt.Sprintf("%s_%s_%s_%s_%03d.pdf",
		order.Date.Format("20060102"),
		filenameReplacer.Replace(order.Total),
		filenameReplacer.Replace(siteTag),
		filenameReplacer.Replace(order.ID),
		seq,
	)
	return filepath.Join(dir, name)
}
