package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Download policy.
const (
	DefaultRetries = 3
	MinPDFSize     = 1000
)

var pdfSignature = []byte("%PDF")

// Errors.
var (
	ErrTooSmall  = errors.New("downloaded file is too small")
	ErrNotPDF    = errors.New("response is not a PDF")
	ErrForbidden = errors.New("access forbidden")
)

// Downloader saves PDFs with retries and exponential backoff.
type Downloader struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	retries    int
	backoff    time.Duration
	minSize    int64
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...Option) *Downloader {
	o := defaultOptions()
	o.httpClient = &http.Client{Timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retries < 1 {
		o.retries = 1
	}
	return &Downloader{
		httpClient: o.httpClient,
		limiter:    o.limiter,
		logger:     o.logger,
		retries:    o.retries,
		backoff:    o.backoff,
		minSize:    o.minSize,
	}
}

// Download fetches rawURL into path. Attempts are separated by the backoff
// delay, doubling each time. The file only appears at path once it passed
// the size and signature checks.
func (d *Downloader) Download(ctx context.Context, rawURL, path string) error {
	var lastErr error
	delay := d.backoff
	for attempt := 1; attempt <= d.retries; attempt++ {
		d.logger.Debug("downloading", zap.String("url", rawURL), zap.Int("attempt", attempt))
		err := d.attempt(ctx, rawURL, path)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		d.logger.Warn("download attempt failed", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))

		if attempt < d.retries && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
	return fmt.Errorf("downloading %s after %d attempts: %w", rawURL, d.retries, lastErr)
}

func (d *Downloader) attempt(ctx context.Context, rawURL, path string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf,application/octet-stream,*/*")
	req.Header.Set("Referer", rawURL)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".midel-download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	head := make([]byte, len(pdfSignature))
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		tmp.Close()
		return err
	}
	if !bytes.Equal(head[:n], pdfSignature) {
		tmp.Close()
		return ErrNotPDF
	}

	written, err := io.Copy(tmp, io.MultiReader(bytes.NewReader(head[:n]), resp.Body))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	if written < d.minSize {
		return fmt.Errorf("%w: %d bytes", ErrTooSmall, written)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}
	return nil
}
