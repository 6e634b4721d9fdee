package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	gomail "gopkg.in/mail.v2"
)

// NotifySender mails a run summary, optionally with the saved invoices attached.
type NotifySender struct {
	cfg NotifyConfig
}

func NewNotifySender(cfg NotifyConfig) *NotifySender {
	return &NotifySender{cfg: cfg}
}

func summarySubject(report *HarvestReport, r DateRange) string {
	return fmt.Sprintf("Invoice download: %d saved, %d failed (%s)", len(report.Saved), len(report.Failed), r)
}

func summaryBody(report *HarvestReport, r DateRange) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Range: %s\n", r)
	fmt.Fprintf(&b, "Years: %s\n", strings.Join(report.Years, ", "))
	fmt.Fprintf(&b, "Pages: %d, orders: %d, skipped cards: %d\n\n", report.Pages, report.Orders, report.Skipped)

	fmt.Fprintf(&b, "Saved (%d):\n", len(report.Saved))
	for _, res := range report.Saved {
		fmt.Fprintf(&b, "- %s\n", filepath.Base(res.Path))
	}

	if len(report.Failed) > 0 {
		fmt.Fprintf(&b, "\nFailed (%d):\n", len(report.Failed))
		for _, res := range report.Failed {
			fmt.Fprintf(&b, "- %s: %v\n", res.URL, res.Err)
		}
	}

	return b.String()
}

func (s *NotifySender) buildMessage(report *HarvestReport, r DateRange, attach bool) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", summarySubject(report, r))
	m.SetBody("text/plain", summaryBody(report, r))

	if attach {
		for _, res := range report.Saved {
			m.Attach(res.Path)
		}
	}

	return m
}

// Send mails the summary of report. It does nothing when notifications are disabled.
func (s *NotifySender) Send(report *HarvestReport, r DateRange, dryRun bool) error {
	if !s.cfg.Enabled {
		return nil
	}

	// Dry runs have no files to attach.
	m := s.buildMessage(report, r, s.cfg.AttachInvoices && !dryRun)

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		log.Printf("Email error: failed to send to %s: %v", s.cfg.ToEmail, err)
		return err
	}

	fmt.Printf("📧 Summary sent to %s\n", s.cfg.ToEmail)
	return nil
}
