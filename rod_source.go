package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodOrderSource is the live order-history page.
type rodOrderSource struct {
	a *Automation
}

func newRodOrderSource(a *Automation) *rodOrderSource {
	return &rodOrderSource{a: a}
}

// yearFilter prefers the filter inside the order-history form and falls back
// to any filter with the same id.
func (s *rodOrderSource) yearFilter() (*rod.Element, error) {
	sel := s.a.config.Selectors
	el, err := s.a.bounded(s.a.config.NavTimeout).Element(sel.YearFilterForm)
	if err == nil {
		return el, nil
	}
	s.a.debugLog("Year filter inside form not found: %v", err)

	el, err = s.a.bounded(s.a.config.NavTimeout).Element(sel.YearFilter)
	if err != nil {
		return nil, fmt.Errorf("could not find time filter dropdown: %w", err)
	}
	return el, nil
}

// waitNavigation arms a wait for the next page load, bounded by PageLoadTimeout
// so a filter change that stays on the page does not block forever.
func (s *rodOrderSource) waitNavigation() func() {
	return s.a.bounded(s.a.config.PageLoadTimeout).WaitNavigation(proto.PageLifecycleEventNameLoad)
}

func (s *rodOrderSource) YearOptions() ([]string, error) {
	el, err := s.yearFilter()
	if err != nil {
		return nil, err
	}

	markup, err := el.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read time filter: %w", err)
	}
	return ParseYearOptions(markup)
}

func (s *rodOrderSource) SelectYear(year string) error {
	el, err := s.yearFilter()
	if err != nil {
		return err
	}

	wait := s.waitNavigation()
	option := fmt.Sprintf(`[value="year-%s"]`, year)
	if err := el.Select([]string{option}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("failed to select %s: %w", year, err)
	}
	wait()

	return nil
}

func (s *rodOrderSource) Cards() ([]OrderCard, error) {
	els, err := s.a.page.Elements(s.a.config.Selectors.OrderCard)
	if err != nil {
		return nil, err
	}

	cards := make([]OrderCard, len(els))
	for i, el := range els {
		cards[i] = &rodCard{a: s.a, el: el}
	}
	return cards, nil
}

func (s *rodOrderSource) NextPage() bool {
	next, err := s.a.bounded(s.a.config.NextPageTimeout).Element(s.a.config.Selectors.NextPage)
	if err != nil {
		s.a.debugLog("Next page link not found: %v", err)
		return false
	}

	wait := s.waitNavigation()
	if err := next.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.a.debugLog("Next page click failed: %v", err)
		return false
	}
	wait()

	return true
}

type rodCard struct {
	a  *Automation
	el *rod.Element
}

func (c *rodCard) HTML() (string, error) {
	return c.el.HTML()
}

func (c *rodCard) OpenInvoicePopover() error {
	has, link, err := c.el.HasR("a", regexp.QuoteMeta(c.a.locale.Labels.Invoice))
	if err != nil {
		return err
	}
	if !has {
		return ErrNoInvoiceLink
	}

	return link.Click(proto.InputMouseButtonLeft, 1)
}

const hiddenStyle = "display:none"

// popoverXPath matches invoice anchors inside pop-overs that are not hidden.
// Pop-overs of earlier cards stay in the DOM with display:none on the
// container or one of its ancestors.
func popoverXPath(popoverClass, label string) string {
	notHidden := fmt.Sprintf(`not(ancestor-or-self::*[contains(translate(@style, " ", ""), %s) or @aria-hidden = "true"])`,
		xpathLiteral(hiddenStyle))
	return fmt.Sprintf(`//div[contains(concat(" ", normalize-space(@class), " "), %s) and %s]//a[contains(normalize-space(.), %s) and %s]`,
		xpathLiteral(" "+popoverClass+" "), notHidden, xpathLiteral(label), notHidden)
}

// VisibleInvoiceHrefs returns the hrefs of invoice anchors inside pop-overs
// of markup that are not hidden, in document order.
func VisibleInvoiceHrefs(markup, popoverClass, label string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if !strings.Contains(normalizeText(a.Text()), label) {
			return
		}
		if a.Closest("div." + popoverClass).Length() == 0 {
			return
		}
		if isHidden(a) || a.Parents().FilterFunction(func(_ int, p *goquery.Selection) bool {
			return isHidden(p)
		}).Length() > 0 {
			return
		}
		href, _ := a.Attr("href")
		hrefs = append(hrefs, href)
	})
	return hrefs
}

func isHidden(s *goquery.Selection) bool {
	if aria, ok := s.Attr("aria-hidden"); ok && aria == "true" {
		return true
	}
	style, _ := s.Attr("style")
	return strings.Contains(strings.ReplaceAll(style, " ", ""), hiddenStyle)
}

// InvoiceAnchors returns the anchors of the open pop-over only.
func (c *rodCard) InvoiceAnchors() ([]InvoiceAnchor, error) {
	popoverClass := c.a.config.Selectors.PopoverContent
	label := c.a.locale.Labels.Invoice
	xpath := popoverXPath(popoverClass, label)

	first, err := c.a.bounded(c.a.config.NavTimeout).ElementX(xpath)
	if err == nil {
		err = first.WaitVisible()
	}
	if err != nil {
		return nil, fmt.Errorf("invoice pop-over did not open: %w", err)
	}

	markup, err := c.a.page.HTML()
	if err != nil {
		return nil, err
	}
	visible := make(map[string]bool)
	for _, href := range VisibleInvoiceHrefs(markup, popoverClass, label) {
		visible[href] = true
	}

	els, err := c.a.page.ElementsX(xpath)
	if err != nil {
		return nil, err
	}

	var anchors []InvoiceAnchor
	for _, el := range els {
		href, err := el.Attribute("href")
		if err != nil || href == nil || !visible[*href] {
			continue
		}
		if shown, err := el.Visible(); err != nil || !shown {
			continue
		}
		anchors = append(anchors, &rodAnchor{a: c.a, el: el, href: *href})
	}
	return anchors, nil
}

type rodAnchor struct {
	a    *Automation
	el   *rod.Element
	href string
}

func (r *rodAnchor) Href() string {
	return r.href
}

func (r *rodAnchor) SaveAs(path string) error {
	return r.a.saveDownload(func() error {
		return r.a.altClick(r.el)
	}, path)
}
