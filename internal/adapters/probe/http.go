// Package probe sonde les URLs surveillées par la maintenance.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/yemenflix/yflix/internal/buildinfo"
	"github.com/yemenflix/yflix/internal/ports"
)

// On lit au plus 64 Ko du corps: assez pour mesurer la réponse sans tout télécharger.
const maxBodyRead = 64 << 10

type HTTPProber struct {
	client    *http.Client
	userAgent string
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: "yflix-maintenance/" + buildinfo.Current().Version,
	}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (ports.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.ProbeResult{}, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return ports.ProbeResult{Latency: time.Since(start)}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyRead))

	return ports.ProbeResult{StatusCode: resp.StatusCode, Latency: time.Since(start)}, nil
}
