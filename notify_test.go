package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testReport(t *testing.T) *HarvestReport {
	t.Helper()

	dir := t.TempDir()
	saved := filepath.Join(dir, "20240103_10,00_amazon_A1_001.pdf")
	if err := os.WriteFile(saved, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	return &HarvestReport{
		Years:  []string{"2024"},
		Pages:  2,
		Orders: 3,
		Saved:  []DownloadResult{{Seq: 1, Path: saved}},
		Failed: []DownloadResult{{URL: "https://www.amazon.de/x.pdf", Err: errors.New("timeout")}},
	}
}

func TestSummaryBody(t *testing.T) {
	report := testReport(t)
	body := summaryBody(report, YearRange(2024))

	for _, want := range []string{
		"Range: 2024-01-01 to 2024-12-31",
		"Saved (1):",
		"- 20240103_10,00_amazon_A1_001.pdf",
		"Failed (1):",
		"https://www.amazon.de/x.pdf: timeout",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	sender := NewNotifySender(NotifyConfig{
		Enabled:   true,
		FromEmail: "bot@example.com",
		ToEmail:   "me@example.com",
	})
	report := testReport(t)

	tests := []struct {
		name       string
		attach     bool
		wantAttach bool
	}{
		{"with attachments", true, true},
		{"without attachments", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := sender.buildMessage(report, YearRange(2024), tt.attach).WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}
			out := buf.String()

			if !strings.Contains(out, "Subject: Invoice download: 1 saved, 1 failed (2024-01-01 to 2024-12-31)") {
				t.Errorf("unexpected subject in:\n%s", out)
			}

			hasAttachment := strings.Contains(out, `filename="20240103_10,00_amazon_A1_001.pdf"`)
			if hasAttachment != tt.wantAttach {
				t.Errorf("attachment present = %v, want %v", hasAttachment, tt.wantAttach)
			}
		})
	}
}

func TestSendDisabled(t *testing.T) {
	sender := NewNotifySender(NotifyConfig{Enabled: false, SMTPServer: "invalid.invalid"})
	if err := sender.Send(&HarvestReport{}, YearRange(2024), false); err != nil {
		t.Errorf("Send() with notifications disabled should be a no-op, got %v", err)
	}
}
