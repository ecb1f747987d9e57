// Package resolver implements the URL Resolver: a rate-limited, worker-pooled
// HTTP client that follows redirect chains to a canonical final URL.
package resolver

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/internal/store"
)

// DefaultRateLimit and DefaultBurst match the design's 25 requests/second,
// burst-of-25 token bucket.
const (
	DefaultRateLimit rate.Limit = 25
	DefaultBurst                = 25
	DefaultMaxHops               = 10
	DefaultTimeout               = 10 * time.Second
)

// Options configures a Resolver.
type Options struct {
	RateLimit rate.Limit
	Burst     int
	MaxHops   int
	Timeout   time.Duration
	Client    *http.Client
	Log       *logrus.Entry
}

// Resolver follows HTTP redirects one hop at a time, respecting a shared
// token-bucket rate limit across all callers.
type Resolver struct {
	client  *http.Client
	limiter *rate.Limiter
	maxHops int
	log     *logrus.Entry
}

// New builds a Resolver from opts, filling unset fields with defaults.
func New(opts Options) *Resolver {
	rl := opts.RateLimit
	if rl == 0 {
		rl = DefaultRateLimit
	}
	burst := opts.Burst
	if burst == 0 {
		burst = DefaultBurst
	}
	maxHops := opts.MaxHops
	if maxHops == 0 {
		maxHops = DefaultMaxHops
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			// Redirects are walked manually so each hop can be rate limited
			// and capped independently of net/http's own redirect policy.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(discardWriter{})
		log = logrus.NewEntry(l)
	}
	return &Resolver{
		client:  client,
		limiter: rate.NewLimiter(rl, burst),
		maxHops: maxHops,
		log:     log,
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Resolve follows rawURL's redirect chain to a final canonical URL,
// consuming one rate-limiter token per HTTP hop. The returned ResolvedURL's
// Status distinguishes a malformed input / 4xx (permanent) from a timeout
// or 5xx (transient), per the design's retry policy. CanonicalURL is the URL
// of the first hop answering 2xx, with relative Location headers resolved
// against the previous hop; no further normalization (case, trailing slash,
// query-parameter order) is applied.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) store.ResolvedURL {
	now := nowSeconds()

	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return store.ResolvedURL{URL: rawURL, Status: store.StatusPermanentFailure, ResolvedAt: now}
	}

	current := rawURL
	for hop := 0; hop < r.maxHops; hop++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return store.ResolvedURL{URL: rawURL, Status: store.StatusTransientFailure, ResolvedAt: nowSeconds()}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, current, nil)
		if err != nil {
			return store.ResolvedURL{URL: rawURL, Status: store.StatusPermanentFailure, ResolvedAt: nowSeconds()}
		}

		resp, err := r.client.Do(req)
		if err != nil {
			r.log.WithError(err).WithField("url", current).Warn("resolve hop failed")
			return store.ResolvedURL{URL: rawURL, Status: store.StatusTransientFailure, ResolvedAt: nowSeconds()}
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			loc := resp.Header.Get("Location")
			if loc == "" {
				return store.ResolvedURL{URL: rawURL, Status: store.StatusPermanentFailure, ResolvedAt: nowSeconds()}
			}
			next, err := absoluteURL(current, loc)
			if err != nil {
				return store.ResolvedURL{URL: rawURL, Status: store.StatusPermanentFailure, ResolvedAt: nowSeconds()}
			}
			current = next
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return store.ResolvedURL{URL: rawURL, CanonicalURL: current, Status: store.StatusResolved, ResolvedAt: nowSeconds()}
		case resp.StatusCode >= 500:
			return store.ResolvedURL{URL: rawURL, Status: store.StatusTransientFailure, ResolvedAt: nowSeconds()}
		default:
			return store.ResolvedURL{URL: rawURL, Status: store.StatusPermanentFailure, ResolvedAt: nowSeconds()}
		}
	}
	return store.ResolvedURL{URL: rawURL, Status: store.StatusPermanentFailure, ResolvedAt: nowSeconds()}
}

func absoluteURL(base, loc string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(loc)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

// nowSeconds is a package variable so tests can replace it; production code
// must not call time.Now() directly so ResolvedAt stays mockable.
var nowSeconds = func() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// corpus is the subset of *store.Store the worker pool needs, kept narrow
// for testability.
type corpus interface {
	PendingURLs(ctx context.Context, limit int) ([]string, error)
	RecordResolution(ctx context.Context, r store.ResolvedURL) error
}

// ResolveAll drains every pending URL from s using concurrency workers,
// recording each outcome. Restartable: already-resolved or already-failed
// URLs are never re-offered by PendingURLs.
func (r *Resolver) ResolveAll(ctx context.Context, s corpus, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	pending, err := s.PendingURLs(ctx, 0)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	work := make(chan string, len(pending))
	for _, u := range pending {
		work <- u
	}
	close(work)

	results := make(chan store.ResolvedURL, len(pending))
	errc := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			for u := range work {
				select {
				case <-ctx.Done():
					errc <- corerr.ErrCancelled
					return
				default:
				}
				results <- r.Resolve(ctx, u)
			}
			errc <- nil
		}()
	}

	go func() {
		for i := 0; i < concurrency; i++ {
			<-errc
		}
		close(results)
	}()

	n := 0
	for res := range results {
		if err := s.RecordResolution(ctx, res); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
