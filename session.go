package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var (
	errOrdersUnreachable = errors.New("could not find a link to the order history")
	errAlreadySignedIn   = errors.New("session already signed in")
)

// linkMatcher finds the target href in a snapshot of the page, or reports ok=false.
type linkMatcher struct {
	name  string
	match func(doc *goquery.Document) (href string, ok bool)
}

// orderLinkMatchers lists the ways to reach the order history, in the order
// they are tried.
func orderLinkMatchers(loc *SiteLocale) []linkMatcher {
	return []linkMatcher{
		{
			name:  fmt.Sprintf("link text %q", loc.Labels.OrdersLinkPrimary),
			match: anchorWithText(loc.Labels.OrdersLinkPrimary),
		},
		{
			name:  fmt.Sprintf("link text %q", loc.Labels.OrdersLinkSecondary),
			match: anchorWithText(loc.Labels.OrdersLinkSecondary),
		},
		{
			name:  fmt.Sprintf("href containing %q", loc.Labels.OrdersHrefFragment),
			match: anchorWithHref(loc.Labels.OrdersHrefFragment),
		},
	}
}

func anchorWithText(text string) func(*goquery.Document) (string, bool) {
	needle := strings.ToLower(text)
	return func(doc *goquery.Document) (string, bool) {
		return firstAnchor(doc, func(a *goquery.Selection, _ string) bool {
			return strings.Contains(strings.ToLower(normalizeText(a.Text())), needle)
		})
	}
}

func anchorWithHref(fragment string) func(*goquery.Document) (string, bool) {
	return func(doc *goquery.Document) (string, bool) {
		return firstAnchor(doc, func(_ *goquery.Selection, href string) bool {
			return strings.Contains(href, fragment)
		})
	}
}

func firstAnchor(doc *goquery.Document, pred func(a *goquery.Selection, href string) bool) (string, bool) {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
			return true
		}
		if pred(a, href) {
			found = href
			return false
		}
		return true
	})
	return found, found != ""
}

// FindOrderHistoryLink tries each matcher against markup in order and returns
// the first hit.
func FindOrderHistoryLink(markup string, matchers []linkMatcher) (name, href string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", "", false
	}
	for _, m := range matchers {
		if href, ok := m.match(doc); ok {
			return m.name, href, true
		}
	}
	return "", "", false
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	return `concat("` + strings.Join(parts, `", '"', "`) + `")`
}

// fieldXPath matches a form control by its visible label, as a screen reader
// would resolve it.
func fieldXPath(label string) string {
	l := xpathLiteral(label)
	return fmt.Sprintf(`//input[@id = //label[contains(normalize-space(.), %[1]s)]/@for]`+
		` | //label[contains(normalize-space(.), %[1]s)]//input`+
		` | //input[@aria-label = %[1]s]`, l)
}

// buttonXPath matches a button by its accessible name.
func buttonXPath(name string) string {
	l := xpathLiteral(name)
	return fmt.Sprintf(`//button[normalize-space(.) = %[1]s]`+
		` | //input[(@type = "submit" or @type = "button") and @value = %[1]s]`+
		` | //input[(@type = "submit" or @type = "button") and @aria-labelledby = //*[normalize-space(.) = %[1]s]/@id]`, l)
}

// openHomepage loads the shop's start page.
func (a *Automation) openHomepage() error {
	homepageURL := a.locale.BaseURL
	fmt.Printf("🌐 Loading homepage: %s\n", homepageURL)

	if err := a.openPage(); err != nil {
		return err
	}

	if err := a.page.Navigate(homepageURL); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	if err := a.bounded(a.config.PageLoadTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("page failed to load: %w", err)
	}

	return nil
}

// login opens the sign-in form and submits whichever credentials are
// configured. Without credentials the session stays as the browser profile
// left it.
func (a *Automation) login() error {
	fmt.Println("🔐 Waiting for the sign-in entry point...")
	if a.config.LoginWaitTimeout <= 0 {
		fmt.Println("   (solve any CAPTCHA or 2FA prompt in the browser window; waiting without limit)")
	}

	entry, err := a.waitForLoginEntry()
	if errors.Is(err, errAlreadySignedIn) {
		fmt.Println("✓ Already signed in (browser profile session)")
		return nil
	}
	if err != nil {
		if isTimeoutError(err) {
			fmt.Printf("⚠️  Sign-in entry not found within %ds.\n", a.config.LoginWaitTimeout)
			fmt.Println("   Sign in manually in the browser window if needed; continuing with the current session.")
			return nil
		}
		return fmt.Errorf("failed to find sign-in entry: %w", err)
	}

	if err := entry.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to open sign-in form: %w", err)
	}

	if !a.config.HasCredentials() {
		fmt.Println("ℹ️  No credentials configured, continuing without automatic sign-in")
		return nil
	}

	if a.config.Email != "" {
		if err := a.fillField(a.locale.Labels.EmailField, a.config.Email); err != nil {
			return fmt.Errorf("failed to enter email: %w", err)
		}
		if err := a.clickButton(a.locale.Labels.ContinueButton); err != nil {
			return fmt.Errorf("failed to continue after email: %w", err)
		}
		a.randomDelay()
	}

	if a.config.Password != "" {
		if err := a.fillField(a.locale.Labels.PasswordField, a.config.Password); err != nil {
			return fmt.Errorf("failed to enter password: %w", err)
		}

		a.checkRememberMe()

		if err := a.clickButton(a.locale.Labels.SignInButton); err != nil {
			return fmt.Errorf("failed to submit sign-in form: %w", err)
		}
		a.randomDelay()
	}

	fmt.Println("✓ Sign-in submitted")
	return nil
}

// waitForLoginEntry waits for the sign-in entry point, or for the account
// greeting a persisted profile session shows instead.
func (a *Automation) waitForLoginEntry() (*rod.Element, error) {
	labels := a.locale.Labels
	entryPattern := regexp.QuoteMeta(labels.LoginEntry)
	page := a.bounded(a.config.LoginWaitTimeout)

	if labels.SignedInGreeting == "" {
		return page.ElementR("span", entryPattern)
	}

	el, err := page.Race().
		ElementR("span", entryPattern).
		ElementR("span", labels.SignedInGreeting).
		Do()
	if err != nil {
		return nil, err
	}

	text, err := el.Text()
	if err != nil {
		return nil, err
	}
	if !strings.Contains(normalizeText(text), labels.LoginEntry) {
		a.debugLog("Signed-in greeting found: %q", text)
		return nil, errAlreadySignedIn
	}
	return el, nil
}

func (a *Automation) fillField(label, value string) error {
	el, err := a.bounded(a.config.PageLoadTimeout).ElementX(fieldXPath(label))
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		a.debugLog("Could not select existing text in %q: %v", label, err)
	}
	return el.Input(value)
}

func (a *Automation) clickButton(name string) error {
	el, err := a.bounded(a.config.PageLoadTimeout).ElementX(buttonXPath(name))
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// checkRememberMe ticks the "stay signed in" box when the form offers one.
func (a *Automation) checkRememberMe() {
	el, err := a.bounded(a.config.RememberMeTimeout).ElementX(fieldXPath(a.locale.Labels.RememberMe))
	if err != nil {
		a.debugLog("Remember-me checkbox not available: %v", err)
		return
	}

	checked, err := el.Eval(`() => this.checked`)
	if err == nil && checked.Value.Bool() {
		return
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		a.debugLog("Could not tick remember-me checkbox: %v", err)
	}
}

// navigateToOrders follows the first order-history link any matcher finds,
// giving each matcher NavTimeout to appear.
func (a *Automation) navigateToOrders() error {
	fmt.Println("📦 Opening order history...")

	for _, m := range orderLinkMatchers(a.locale) {
		href, ok := a.pollForLink(m, seconds(a.config.NavTimeout))
		if !ok {
			a.debugLog("No match for %s", m.name)
			continue
		}

		target, err := ResolveURL(a.locale.BaseURL, href)
		if err != nil {
			a.debugLog("Unusable link for %s: %v", m.name, err)
			continue
		}

		a.debugLog("Following %s -> %s", m.name, target)
		if err := a.page.Navigate(target); err != nil {
			return fmt.Errorf("failed to open order history: %w", err)
		}
		if err := a.bounded(a.config.PageLoadTimeout).WaitLoad(); err != nil {
			return fmt.Errorf("order history failed to load: %w", err)
		}

		a.randomDelay()
		fmt.Println("✓ Order history opened")
		return nil
	}

	return errOrdersUnreachable
}

func (a *Automation) pollForLink(m linkMatcher, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if markup, err := a.page.HTML(); err == nil {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
			if err == nil {
				if href, ok := m.match(doc); ok {
					return href, true
				}
			}
		}

		if time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(500 * time.Millisecond)
	}
}
