package invoice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PDFRenderer converts an HTML page to PDF.
type PDFRenderer interface {
	PDF(ctx context.Context, html []byte) ([]byte, error)
}

// ChromePDF prints pages with a headless Chrome started on first use and
// reused until Close.
type ChromePDF struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewChromePDF returns a renderer using the Chrome binary at bin, or the
// one rod downloads when bin is empty.
func NewChromePDF(bin string, timeout time.Duration, logger *slog.Logger) *ChromePDF {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ChromePDF{bin: bin, timeout: timeout, logger: logger}
}

func (c *ChromePDF) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New().Headless(true).Leakless(true)
	if c.bin != "" {
		l = l.Bin(c.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	c.logger.Info("invoice: headless chrome started", "bin", c.bin)
	c.launcher = l
	c.browser = browser
	return browser, nil
}

// PDF loads html into a fresh page and prints it.
func (c *ChromePDF) PDF(ctx context.Context, html []byte) ([]byte, error) {
	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			c.logger.Warn("invoice: failed to close page", "error", err)
		}
	}()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set page content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for page load: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	defer stream.Close()

	pdf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return pdf, nil
}

// Close shuts the browser down.
func (c *ChromePDF) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.launcher.Kill()
	c.browser = nil
	c.launcher = nil
	return err
}
