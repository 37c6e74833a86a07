// Package export converts rendered HTML layouts to PDF with headless Chrome.
package export

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrPDFDependencyMissing indicates no Chrome/Chromium binary is available.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")

const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
	defaultTimeout = 30 * time.Second
)

var browserBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// Result is an exported file.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// PDFExporter prints HTML through a fresh headless browser per call.
type PDFExporter struct {
	Timeout  time.Duration
	lookPath func(string) (string, error)
}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Timeout: defaultTimeout, lookPath: exec.LookPath}
}

func (e *PDFExporter) browser() (string, error) {
	for _, name := range browserBinaries {
		if p, err := e.lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
}

// Available reports whether a browser binary can be found.
func (e *PDFExporter) Available() bool {
	_, err := e.browser()
	return err == nil
}

// Export prints html to an A4 PDF named after title.
func (e *PDFExporter) Export(ctx context.Context, html, title string) (*Result, error) {
	execPath, err := e.browser()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	var pdfData []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}

	return &Result{
		Data:     pdfData,
		Filename: SanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

// percentEncodeForDataURL encodes s for a data URL; spaces become %20, never +.
func percentEncodeForDataURL(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// SanitizeFilename keeps letters, digits, dashes and underscores; spaces become dashes.
func SanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
		if b.Len() >= 50 {
			break
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
