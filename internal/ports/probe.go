package ports

import (
	"context"
	"time"
)

type ProbeResult struct {
	StatusCode int
	Latency    time.Duration
}

// Prober effectue une requête GET et mesure la latence.
// Une erreur est renvoyée seulement pour les échecs de transport.
type Prober interface {
	Probe(ctx context.Context, url string) (ProbeResult, error)
}
