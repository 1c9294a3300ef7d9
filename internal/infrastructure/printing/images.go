package printing

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxImageBytes     = 2 << 20
	imageFetchLimit   = 8
	imageFetchTimeout = 5 * time.Second
)

// ImagePreloader downloads product photos once per document so Chrome
// never blocks on slow image hosts while printing.
type ImagePreloader struct {
	client *http.Client
	logger *zap.Logger
}

// NewImagePreloader creates a preloader. A nil client gets a 5s timeout.
func NewImagePreloader(client *http.Client, logger *zap.Logger) *ImagePreloader {
	if client == nil {
		client = &http.Client{Timeout: imageFetchTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImagePreloader{client: client, logger: logger}
}

// Preload fetches every distinct URL and returns url -> data URL. Failed
// downloads are skipped.
func (p *ImagePreloader) Preload(ctx context.Context, urls []string) map[string]string {
	out := make(map[string]string)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imageFetchLimit)

	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		g.Go(func() error {
			data, err := p.fetch(ctx, u)
			if err != nil {
				p.logger.Debug("Product image skipped", zap.String("url", u), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[u] = data
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *ImagePreloader) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}
