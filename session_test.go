package main

import (
	"strings"
	"testing"
)

const homepageFixture = `<html><body>
<div id="nav-tools">
  <a href="#">Konto und Listen</a>
  <a href="javascript:void(0)">Warenrücksendungen</a>
  <a href="/gp/css/order-history?ref_=nav_orders_first" id="nav-orders">
    <span>Warenrücksendungen</span>
    <span>und Bestellungen</span>
  </a>
</div>
</body></html>`

func TestFindOrderHistoryLink(t *testing.T) {
	loc := testLocale(t)
	matchers := orderLinkMatchers(loc)

	tests := []struct {
		name     string
		markup   string
		wantHref string
		wantBy   string
		wantOK   bool
	}{
		{
			name:     "primary link text",
			markup:   homepageFixture,
			wantHref: "/gp/css/order-history?ref_=nav_orders_first",
			wantBy:   "Warenrücksendungen",
			wantOK:   true,
		},
		{
			name:     "secondary link text",
			markup:   `<a href="/gp/your-account/order-history">Meine   Bestellungen</a>`,
			wantHref: "/gp/your-account/order-history",
			wantBy:   "Meine Bestellungen",
			wantOK:   true,
		},
		{
			name:     "href fragment",
			markup:   `<a href="/gp/help">Hilfe</a><a href="/your-orders/orders?ref=x"><img alt=""></a>`,
			wantHref: "/your-orders/orders?ref=x",
			wantBy:   "your-orders",
			wantOK:   true,
		},
		{
			name:   "no link",
			markup: `<a href="/gp/help">Hilfe</a>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			by, href, ok := FindOrderHistoryLink(tt.markup, matchers)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if href != tt.wantHref {
				t.Errorf("href = %q, want %q", href, tt.wantHref)
			}
			if !strings.Contains(by, tt.wantBy) {
				t.Errorf("matched by %q, want it to mention %q", by, tt.wantBy)
			}
		})
	}
}

func TestOrderLinkMatchersOrder(t *testing.T) {
	loc := testLocale(t)

	// Both the primary text and the href fragment match; the text wins.
	markup := `<a href="/your-orders/orders">Bestellungen</a><a href="/gp/css/order-history">Warenrücksendungen</a>`
	by, href, ok := FindOrderHistoryLink(markup, orderLinkMatchers(loc))
	if !ok {
		t.Fatal("expected a match")
	}
	if href != "/gp/css/order-history" {
		t.Errorf("href = %q, matched by %s", href, by)
	}
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Weiter", `"Weiter"`},
		{`Say "hi"`, `'Say "hi"'`},
		{`it's "x"`, `concat("it's ", '"', "x", '"', "")`},
	}

	for _, tt := range tests {
		if got := xpathLiteral(tt.in); got != tt.want {
			t.Errorf("xpathLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFieldAndButtonXPath(t *testing.T) {
	field := fieldXPath("Passwort")
	if !strings.Contains(field, `//label[contains(normalize-space(.), "Passwort")]`) {
		t.Errorf("fieldXPath() does not match by label: %s", field)
	}
	if !strings.Contains(field, `@aria-label = "Passwort"`) {
		t.Errorf("fieldXPath() does not match by aria-label: %s", field)
	}

	button := buttonXPath("Anmelden")
	if !strings.Contains(button, `//button[normalize-space(.) = "Anmelden"]`) {
		t.Errorf("buttonXPath() does not match button text: %s", button)
	}
	if strings.Count(button, " | ") != 2 {
		t.Errorf("buttonXPath() should union three alternatives: %s", button)
	}
}
