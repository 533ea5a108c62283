package source

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const probeTimeout = 3 * time.Second

// Probe implements domain.Connectivity with a short health check against the
// provider. Every call hits the network: connectivity can change between
// calls, so the answer is never cached.
type Probe struct {
	url        string
	httpClient *http.Client
}

// NewProbe builds a probe for the given provider. API deployments expose
// /api/health; static deployments are probed at the collection file itself.
func NewProbe(baseURL string, mode Mode) *Probe {
	path := "/api/health"
	if mode == ModeStatic {
		path = "/sets.json"
	}
	return &Probe{
		url:        strings.TrimRight(baseURL, "/") + path,
		httpClient: &http.Client{Timeout: probeTimeout},
	}
}

// Online reports whether the provider answered at all. Any HTTP response
// counts; only transport failures mean unreachable.
func (p *Probe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
