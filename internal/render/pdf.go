package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrNoBrowser indicates no headless browser is reachable for PDF
// export; the HTML endpoint still works without one.
var ErrNoBrowser = errors.New("no browser available for PDF rendering")

// PDFConfig holds browser settings for PDF export.
type PDFConfig struct {
	// BrowserURL is an existing DevTools websocket. Empty launches a
	// local headless Chrome on first use.
	BrowserURL string

	// Timeout bounds one render.
	Timeout time.Duration
}

// PDFRenderer prints rendered HTML to PDF through headless Chrome.
// The browser connection is established lazily and reused.
type PDFRenderer struct {
	cfg    PDFConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(cfg PDFConfig, logger *zap.Logger) *PDFRenderer {
	if cfg.Timeout == 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &PDFRenderer{cfg: cfg, logger: logger.Named("pdf")}
}

// PDF renders the HTML document to PDF bytes.
func (p *PDFRenderer) PDF(ctx context.Context, htmlDoc []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	browser, err := p.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.SetDocumentContent(string(htmlDoc)); err != nil {
		return nil, fmt.Errorf("failed to set page content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for page load: %w", err)
	}

	printBackground := true
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: printBackground,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print page: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF stream: %w", err)
	}

	p.logger.Debug("pdf rendered", zap.Int("bytes", len(data)))
	return data, nil
}

// connect returns the shared browser, dialing or launching on first
// use and reconnecting when the old connection went stale.
func (p *PDFRenderer) connect() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return p.browser, nil
		}
		p.logger.Warn("stale browser connection, reconnecting")
		_ = p.browser.Close()
		p.browser = nil
	}

	controlURL := p.cfg.BrowserURL
	if controlURL == "" {
		url, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoBrowser, err)
		}
		controlURL = url
	}

	// The browser outlives the request; only pages take the caller's
	// context.
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBrowser, err)
	}
	p.browser = browser
	return browser, nil
}

// Close shuts the browser connection down.
func (p *PDFRenderer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}
