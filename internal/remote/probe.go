package remote

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ProbeTimeout bounds one connectivity check. Kept short because the
// probe runs inline on every capture before the routing decision.
const ProbeTimeout = 5 * time.Second

// probePath is a remote endpoint known to exist. The probe only cares
// that something answers, not what it says.
const probePath = "/students/next-ids"

// Probe answers whether the remote is reachable right now. Answers are
// never cached; online and offline flip swipe to swipe on a flaky
// uplink and every capture deserves a fresh decision.
type Probe struct {
	base  string
	httpc *http.Client
	log   *logrus.Logger
}

// NewProbe returns a probe against the backend at baseURL. An empty
// baseURL yields a probe that always reports offline.
func NewProbe(baseURL string, log *logrus.Logger) *Probe {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Probe{
		base:  strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{Timeout: ProbeTimeout},
		log:   log,
	}
}

// Online reports whether the remote answered at all. A 401 counts as
// online: the endpoint wants auth but the network path is up.
func (p *Probe) Online(ctx context.Context) bool {
	if p.base == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+probePath, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		p.log.WithError(err).Debug("Connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized
}
