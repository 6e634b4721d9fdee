package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	unknownOrderID = "unknown"
	zeroAmount     = "0,00"
	orderIDParam   = "orderID="

	// Real order cards render well over this many spans; promotional
	// tiles in the listing render fewer.
	minCardSpans = 10
	// The order date is always among the first few spans of a card.
	dateSpanWindow = 5
)

// Order is the metadata parsed from one order card.
type Order struct {
	Date  time.Time
	Total string
	ID    string
}

// CardResult is either a parsed order or the reason the card was skipped.
type CardResult struct {
	Order Order
	Skip  string
}

func (r CardResult) Skipped() bool {
	return r.Skip != ""
}

func skipCard(format string, args ...interface{}) CardResult {
	return CardResult{Skip: fmt.Sprintf(format, args...)}
}

// ParseOrderCard extracts date, total and order ID from an order card's HTML.
// It never fails: malformed cards come back as skipped results.
func ParseOrderCard(markup string, loc *SiteLocale) (result CardResult) {
	defer func() {
		if r := recover(); r != nil {
			result = skipCard("malformed card: %v", r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return skipCard("unparseable markup: %v", err)
	}

	spans := spanTexts(doc.Selection)
	if len(spans) < minCardSpans {
		return skipCard("only %d spans, not an order card", len(spans))
	}

	dateText := findDateText(spans, loc)
	if dateText == "" {
		return skipCard("no order date found")
	}

	date, err := ParseOrderDate(dateText, loc)
	if err != nil {
		return skipCard("%v", err)
	}

	return CardResult{
		Order: Order{
			Date:  date,
			Total: findTotal(spans, loc),
			ID:    findOrderID(doc.Selection),
		},
	}
}

func spanTexts(s *goquery.Selection) []string {
	var texts []string
	s.Find("span").Each(func(_ int, span *goquery.Selection) {
		texts = append(texts, normalizeText(span.Text()))
	})
	return texts
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findDateText(spans []string, loc *SiteLocale) string {
	limit := dateSpanWindow
	if len(spans) < limit {
		limit = len(spans)
	}
	for _, text := range spans[:limit] {
		if strings.Contains(text, ". ") && loc.MentionsMonth(text) {
			return text
		}
	}
	return ""
}

func findTotal(spans []string, loc *SiteLocale) string {
	for _, text := range spans {
		if strings.Contains(text, loc.CurrencyMarker) && strings.Contains(text, loc.DecimalSeparator) {
			return SanitizeAmount(text, loc)
		}
	}
	return zeroAmount
}

// SanitizeAmount strips the currency marker and thousands separators from a
// displayed total: "12.345,67€" becomes "12345,67".
func SanitizeAmount(text string, loc *SiteLocale) string {
	text = strings.ReplaceAll(text, loc.CurrencyMarker, "")
	if loc.ThousandsSeparator != "" {
		text = strings.ReplaceAll(text, loc.ThousandsSeparator, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return zeroAmount
	}
	return text
}

func findOrderID(s *goquery.Selection) string {
	id := unknownOrderID
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if v := ExtractOrderID(href); v != "" {
			id = v
			return false
		}
		return true
	})
	return id
}

// ExtractOrderID returns the orderID query value of href, or "" when the href
// carries none.
func ExtractOrderID(href string) string {
	_, rest, found := strings.Cut(href, orderIDParam)
	if !found {
		return ""
	}
	id, _, _ := strings.Cut(rest, "&")
	return id
}

// ParseYearOptions returns the visible option texts of the year filter.
func ParseYearOptions(selectHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(selectHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse year filter: %w", err)
	}

	var options []string
	doc.Find("option").Each(func(_ int, o *goquery.Selection) {
		options = append(options, normalizeText(o.Text()))
	})
	return options, nil
}

// RelevantYears keeps the numeric year options that overlap the range, most
// recent first.
func RelevantYears(options []string, r DateRange) []string {
	seen := make(map[int]bool)
	var years []int

	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if !isDigits(opt) {
			continue
		}
		year, err := strconv.Atoi(opt)
		if err != nil || seen[year] || !r.ContainsYear(year) {
			continue
		}
		seen[year] = true
		years = append(years, year)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	result := make([]string, len(years))
	for i, y := range years {
		result[i] = strconv.Itoa(y)
	}
	return result
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
