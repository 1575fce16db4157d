package analysis

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
)

// HTTPFetcher fetches analysis from an OpenChain server's /api/analyze.
type HTTPFetcher struct {
	http *http.Client
	base string
}

// NewHTTPFetcher creates a fetcher for the server at base, for example
// "http://localhost:3000". A nil client uses one with backend.DefaultTimeout.
func NewHTTPFetcher(base string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = backend.NewHTTPClient(backend.DefaultTimeout)
	}
	return &HTTPFetcher{http: client, base: strings.TrimRight(base, "/")}
}

// Analyze implements Fetcher. A non-2xx answer or a status other than
// "success" is returned as a *backend.StatusError carrying the server message.
func (f *HTTPFetcher) Analyze(ctx context.Context, a, b string) (string, error) {
	v := url.Values{}
	v.Set("node_a", a)
	v.Set("node_b", b)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/api/analyze?"+v.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrap(errors.ErrCodeTimeout, err, "analysis timed out")
		}
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "analysis request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "read analysis")
	}
	res, decodeErr := graph.DecodeAnalysis(data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &backend.StatusError{Status: resp.StatusCode}
		if res != nil {
			se.Detail = res.Message
		}
		return "", errors.Wrap(errors.ErrCodeBackend, se, "HTTP error! status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", decodeErr
	}
	if !res.OK() {
		if res.Message == "" {
			return "", ErrNoAnalysis
		}
		se := &backend.StatusError{Status: resp.StatusCode, Detail: res.Message}
		return "", errors.Wrap(errors.ErrCodeBackend, se, "%s", res.Message)
	}
	return res.Analysis, nil
}
