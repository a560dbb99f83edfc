package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igprofile/pkg/config"
	"igprofile/pkg/errors"
	"igprofile/pkg/instagram"
	"igprofile/pkg/proxypool"
	"igprofile/pkg/retry"
)

// scriptedRunner returns one canned result per proxy URL
type scriptedRunner struct {
	result instagram.Result
}

func (r *scriptedRunner) Run(ctx context.Context, username string) instagram.Result {
	return r.result
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Proxy.Username = "user"
	cfg.Proxy.Password = "pass"
	cfg.Proxy.Pool = []string{"p1.example", "p2.example", "p3.example"}
	cfg.Proxy.RetryLimit = 3
	cfg.Proxy.Backoff = 0
	return cfg
}

// newTestScraper builds a scraper whose reachability probe always
// passes and whose runner results are scripted per endpoint. The empty
// key scripts the direct attempt.
func newTestScraper(cfg *config.Config, results map[string]instagram.Result) (*Scraper, *[]string) {
	pool := proxypool.New(cfg.Proxy.Pool, nil, nil)
	s := New(cfg, pool, map[string]string{}, nil)
	s.backoff = &retry.ConstantBackoff{Delay: 0}
	s.probe = func(host string, port int, timeout time.Duration) bool { return true }

	var attempts []string
	s.newRunner = func(proxyURL string) (runner, error) {
		attempts = append(attempts, proxyURL)
		result, ok := results[proxyURL]
		if !ok {
			result = instagram.Result{Outcome: instagram.OutcomeTransient, Detail: "connect timeout"}
		}
		return &scriptedRunner{result: result}, nil
	}
	return s, &attempts
}

func successResult(username string) instagram.Result {
	return instagram.Result{
		Outcome: instagram.OutcomeSuccess,
		Profile: &instagram.Profile{Username: username, Followers: 10},
	}
}

func TestFetchProfileFirstProxySucceeds(t *testing.T) {
	cfg := testConfig()
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		cfg.Proxy.SOCKS5URL("p1.example"): successResult("nasa"),
	})

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "nasa", profile.Username)
	assert.Len(t, *attempts, 1)
}

func TestFetchProfileRotatesPastTransientFailure(t *testing.T) {
	cfg := testConfig()
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		cfg.Proxy.SOCKS5URL("p1.example"): {Outcome: instagram.OutcomeTransient, Detail: "timed out"},
		cfg.Proxy.SOCKS5URL("p2.example"): successResult("nasa"),
	})

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "nasa", profile.Username)
	assert.Len(t, *attempts, 2)
}

func TestFetchProfileNotFoundIsTerminal(t *testing.T) {
	cfg := testConfig()
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		cfg.Proxy.SOCKS5URL("p1.example"): {
			Outcome: instagram.OutcomeNotFound,
			Detail:  "Instagram profile 'ghost' not found.",
		},
	})

	_, err := s.FetchProfile(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Len(t, *attempts, 1, "terminal outcome must not rotate to another proxy")
}

func TestFetchProfileRateLimitedIsTerminal(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestScraper(cfg, map[string]instagram.Result{
		cfg.Proxy.SOCKS5URL("p1.example"): {
			Outcome: instagram.OutcomeRateLimited,
			Detail:  "Instagram responded with HTTP 429 Too Many Requests.",
		},
	})

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
}

func TestFetchProfileRateLimitedMarksProxyBad(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestScraper(cfg, map[string]instagram.Result{
		cfg.Proxy.SOCKS5URL("p1.example"): {
			Outcome: instagram.OutcomeRateLimited,
			Detail:  "Instagram responded with HTTP 429 Too Many Requests.",
		},
	})

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	require.True(t, errors.IsRateLimited(err))

	// The rate-limited endpoint sits in cooldown; rotation skips it
	for i := 0; i < 3; i++ {
		host, ok := s.pool.Next(context.Background())
		require.True(t, ok)
		assert.NotEqual(t, "p1.example", host, "rate-limited endpoint should be in cooldown")
	}
}

func TestFetchProfileDirectUnexpectedBecomesNotFound(t *testing.T) {
	cfg := testConfig()
	cfg.Proxy.Pool = nil
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		"": {Outcome: instagram.OutcomeUnexpected, Detail: "boom"},
	})

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "direct: boom")
	require.Len(t, *attempts, 1)
}

func TestFetchProfileBackoffStartsAtFirstFailure(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestScraper(cfg, map[string]instagram.Result{})

	backoff := &recordingBackoff{}
	s.backoff = backoff

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, backoff.calls, "every failed proxy attempt waits, including the first")
}

type recordingBackoff struct {
	calls []int
}

func (b *recordingBackoff) NextDelay(attempt int) time.Duration {
	b.calls = append(b.calls, attempt)
	return 0
}

func TestFetchProfileExhaustionRaisesRuntimeError(t *testing.T) {
	cfg := testConfig()
	// Everything, including the direct attempt, fails transiently
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{})

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	require.True(t, errors.IsRuntime(err))

	var runtimeErr *errors.RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	assert.Len(t, runtimeErr.Reasons, 4, "three proxies plus the direct attempt")
	assert.Contains(t, runtimeErr.Reasons[3], "direct:")

	// Last attempt is the direct one: empty proxy URL
	require.Len(t, *attempts, 4)
	assert.Equal(t, "", (*attempts)[3])
}

func TestFetchProfileDirectAttemptSucceeds(t *testing.T) {
	cfg := testConfig()
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		"": successResult("nasa"),
	})

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "nasa", profile.Username)
	assert.Equal(t, "", (*attempts)[len(*attempts)-1])
}

func TestFetchProfileUnreachableProxySkipsChain(t *testing.T) {
	cfg := testConfig()
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		"": successResult("nasa"),
	})
	s.probe = func(host string, port int, timeout time.Duration) bool { return false }

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "nasa", profile.Username)

	// No proxied chain runs happened, only the direct attempt
	require.Len(t, *attempts, 1)
	assert.Equal(t, "", (*attempts)[0])
}

func TestFetchProfileMissingCredentialsGoesDirect(t *testing.T) {
	cfg := testConfig()
	cfg.Proxy.Username = ""
	s, attempts := newTestScraper(cfg, map[string]instagram.Result{
		"": successResult("nasa"),
	})

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, int64(10), profile.Followers)
	require.Len(t, *attempts, 1)
	assert.Equal(t, "", (*attempts)[0])
}

func TestFetchProfileInvalidUsername(t *testing.T) {
	cfg := testConfig()
	s, attempts := newTestScraper(cfg, nil)

	_, err := s.FetchProfile(context.Background(), "not a valid handle!")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, *attempts)
}

func TestFetchProfileSanitizesHandle(t *testing.T) {
	cfg := testConfig()
	var gotUsername string

	pool := proxypool.New(cfg.Proxy.Pool, nil, nil)
	s := New(cfg, pool, nil, nil)
	s.probe = func(string, int, time.Duration) bool { return true }
	s.newRunner = func(proxyURL string) (runner, error) {
		return runnerFunc(func(ctx context.Context, username string) instagram.Result {
			gotUsername = username
			return successResult(username)
		}), nil
	}

	profile, err := s.FetchProfile(context.Background(), "  @NASA/ ")
	require.NoError(t, err)
	assert.Equal(t, "nasa", gotUsername)
	assert.Equal(t, "nasa", profile.Username)
}

type runnerFunc func(ctx context.Context, username string) instagram.Result

func (f runnerFunc) Run(ctx context.Context, username string) instagram.Result {
	return f(ctx, username)
}
