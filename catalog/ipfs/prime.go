package ipfs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
)

// PrimeResult records one gateway's response to a priming request.
type PrimeResult struct {
	Gateway string
	URL     string
	Status  int
	Err     error
	Elapsed time.Duration
}

// Primer requests freshly published content through public gateways so
// their caches warm up before the announcement goes out.
type Primer struct {
	gateways []string
	timeout  time.Duration
	client   *http.Client
}

// NewPrimer creates a primer for the given gateways with a per-request
// timeout.
func NewPrimer(gateways []string, timeout time.Duration) *Primer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Primer{
		gateways: gateways,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

// Prime requests the root CID from every configured gateway in turn and
// returns one result per gateway. Gateway failures are recorded, not
// returned: a single dead gateway must not abort priming the rest.
func (p *Primer) Prime(ctx context.Context, root cid.Cid) []PrimeResult {
	results := make([]PrimeResult, 0, len(p.gateways))
	for _, gw := range p.gateways {
		results = append(results, p.primeOne(ctx, gw, root))
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

func (p *Primer) primeOne(ctx context.Context, gateway string, root cid.Cid) PrimeResult {
	url := PathURL(gateway, root)
	result := PrimeResult{Gateway: gateway, URL: url}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		result.Err = err
		return result
	}

	resp, err := p.client.Do(req)
	result.Elapsed = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("gateway returned %s", resp.Status)
	}
	return result
}
