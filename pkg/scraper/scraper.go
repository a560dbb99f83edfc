package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"igprofile/pkg/config"
	"igprofile/pkg/errors"
	"igprofile/pkg/instagram"
	"igprofile/pkg/logger"
	"igprofile/pkg/proxypool"
	"igprofile/pkg/ratelimit"
	"igprofile/pkg/retry"
)

// probeTimeout bounds the TCP reachability check that precedes every
// proxied attempt.
const probeTimeout = 5 * time.Second

// runner executes the retrieval strategy chain for one handle
type runner interface {
	Run(ctx context.Context, username string) instagram.Result
}

// Scraper orchestrates profile retrieval: it walks the proxy pool,
// running the strategy chain through each eligible endpoint, and falls
// back to exactly one direct attempt when the pool is exhausted.
type Scraper struct {
	cfg     *config.Config
	pool    *proxypool.Pool
	cookies map[string]string
	backoff retry.BackoffStrategy
	logger  logger.Logger

	// probe and newRunner are swappable for tests
	probe     func(host string, port int, timeout time.Duration) bool
	newRunner func(proxyURL string) (runner, error)
}

// New creates a scraper bound to a proxy pool and a session cookie bag.
// cookies may be empty for anonymous retrieval.
func New(cfg *config.Config, pool *proxypool.Pool, cookies map[string]string, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Scraper{
		cfg:     cfg,
		pool:    pool,
		cookies: cookies,
		backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.Proxy.Backoff,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		logger: log,
		probe:  proxypool.Reachable,
	}

	s.newRunner = func(proxyURL string) (runner, error) {
		client, err := instagram.NewClient(cfg.Scraper.RequestTimeout, proxyURL, cfg.Scraper.Retries, log)
		if err != nil {
			return nil, err
		}
		pacer := ratelimit.NewIntervalPacer(cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay)
		return instagram.NewChain(client, cookies, cfg.Instagram.AppID, pacer, log), nil
	}

	return s
}

// FetchProfile retrieves the profile for one handle. NotFound and
// RateLimited results are terminal wherever they occur; a rate limit
// additionally puts the implicated proxy in cooldown. Transient and
// unexpected failures rotate to the next proxy endpoint. When every
// proxied attempt has failed, one direct attempt runs without a
// reachability precheck: its transient failure raises RuntimeError,
// anything else unexplained becomes NotFound carrying the collected
// reasons.
func (s *Scraper) FetchProfile(ctx context.Context, username string) (*instagram.Profile, error) {
	username = instagram.SanitizeUsername(username)
	if !instagram.IsValidUsername(username) {
		return nil, errors.NotFound("Instagram profile '%s' not found.", username)
	}

	var reasons []string

	limit := s.cfg.Proxy.RetryLimit
	for attempt := 0; attempt < limit; attempt++ {
		host, ok := s.pool.Next(ctx)
		if !ok {
			s.logger.Info("proxy pool exhausted, switching to direct attempt")
			break
		}

		proxyURL := s.cfg.Proxy.SOCKS5URL(host)
		if proxyURL == "" {
			s.logger.Warn("proxy credentials missing, switching to direct attempt")
			break
		}

		if !s.probe(host, s.cfg.Proxy.Port, probeTimeout) {
			s.pool.MarkBad(host, s.cfg.Proxy.Cooldown)
			reasons = append(reasons, fmt.Sprintf("proxy %s unreachable", host))
			continue
		}

		s.logger.InfoWithFields("attempting retrieval through proxy", map[string]interface{}{
			"username": username,
			"host":     host,
			"attempt":  attempt + 1,
		})

		result := s.attempt(ctx, username, proxyURL)
		switch result.Outcome {
		case instagram.OutcomeSuccess:
			return result.Profile, nil
		case instagram.OutcomeNotFound:
			return nil, result.Err()
		case instagram.OutcomeRateLimited:
			s.pool.MarkBad(host, s.cfg.Proxy.Cooldown)
			return nil, result.Err()
		}

		s.pool.MarkBad(host, s.cfg.Proxy.Cooldown)
		reasons = append(reasons, fmt.Sprintf("proxy %s: %s", host, result.Detail))

		if err := retry.Wait(ctx, s.backoff.NextDelay(attempt+1)); err != nil {
			return nil, errors.Timeout("retrieval cancelled: %v", err)
		}
	}

	s.logger.InfoWithFields("attempting direct retrieval", map[string]interface{}{
		"username": username,
	})

	result := s.attempt(ctx, username, "")
	switch result.Outcome {
	case instagram.OutcomeSuccess:
		return result.Profile, nil
	case instagram.OutcomeNotFound, instagram.OutcomeRateLimited:
		return nil, result.Err()
	case instagram.OutcomeTransient:
		reasons = append(reasons, fmt.Sprintf("direct: %s", result.Detail))
		return nil, &errors.RuntimeError{Reasons: reasons}
	default:
		reasons = append(reasons, fmt.Sprintf("direct: %s", result.Detail))
		return nil, errors.NotFound("Unable to retrieve Instagram profile '%s': %s",
			username, strings.Join(reasons, "; "))
	}
}

// attempt runs the full strategy chain through one egress endpoint. A
// runner that cannot even be built counts as a transient failure of
// that endpoint.
func (s *Scraper) attempt(ctx context.Context, username, proxyURL string) instagram.Result {
	run, err := s.newRunner(proxyURL)
	if err != nil {
		return instagram.Result{Outcome: instagram.OutcomeTransient, Detail: err.Error()}
	}
	return run.Run(ctx, username)
}
