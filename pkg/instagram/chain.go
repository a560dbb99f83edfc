package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	errs "igprofile/pkg/errors"
	"igprofile/pkg/logger"
	"igprofile/pkg/ratelimit"
)

// Outcome tags a single strategy result
type Outcome int

const (
	// OutcomeSuccess carries a complete profile record
	OutcomeSuccess Outcome = iota
	// OutcomeAdvance means the strategy was inconclusive; try the next
	OutcomeAdvance
	// OutcomeNotFound means the account is absent or private
	OutcomeNotFound
	// OutcomeRateLimited means the platform returned HTTP 429
	OutcomeRateLimited
	// OutcomeTransient covers DNS, connect and timeout failures
	OutcomeTransient
	// OutcomeUnexpected covers every other failure
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAdvance:
		return "advance"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	default:
		return "unexpected"
	}
}

// Result is the tagged outcome of one strategy attempt or of a full
// chain run.
type Result struct {
	Outcome Outcome
	Profile *Profile
	Detail  string
}

// Err converts a terminal result into the matching domain error
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeNotFound:
		return errs.NotFound("%s", r.Detail)
	case OutcomeRateLimited:
		return errs.RateLimited("%s", r.Detail)
	case OutcomeTransient:
		return errs.Timeout("%s", r.Detail)
	default:
		return errs.Unexpected("%s", r.Detail)
	}
}

// Chain runs the four retrieval strategies in their fixed fallback
// order: mobile API, web API, legacy JSON, HTML. A strategy only runs
// when its predecessor produced an Advance; every other outcome is
// terminal for the run.
type Chain struct {
	client  *Client
	cookies map[string]string
	appID   string
	csrf    string
	pacer   ratelimit.Pacer
	logger  logger.Logger
}

// NewChain builds a chain bound to one transport client. The cookie bag
// is consumed read-only; the CSRF header is derived from it here, at
// chain-build time.
func NewChain(client *Client, cookies map[string]string, appID string, pacer ratelimit.Pacer, log logger.Logger) *Chain {
	if log == nil {
		log = logger.GetLogger()
	}
	if pacer == nil {
		pacer = ratelimit.NopPacer{}
	}
	return &Chain{
		client:  client,
		cookies: cookies,
		appID:   appID,
		csrf:    cookies["csrftoken"],
		pacer:   pacer,
		logger:  log,
	}
}

// Run executes the fallback chain for one handle
func (c *Chain) Run(ctx context.Context, username string) Result {
	strategies := []struct {
		name string
		fn   func(context.Context, string) Result
	}{
		{"mobile_api", c.fetchMobileAPI},
		{"web_api", c.fetchWebAPI},
		{"legacy_json", c.fetchLegacyJSON},
		{"html", c.fetchHTML},
	}

	for i, strategy := range strategies {
		if i > 0 {
			c.logger.InfoWithFields("falling back to next strategy", map[string]interface{}{
				"username": username,
				"strategy": strategy.name,
			})
			if err := c.pacer.Wait(ctx); err != nil {
				return Result{Outcome: OutcomeTransient, Detail: fmt.Sprintf("pacing interrupted: %v", err)}
			}
		}

		result := strategy.fn(ctx, username)
		if result.Outcome != OutcomeAdvance {
			c.logger.DebugWithFields("strategy finished", map[string]interface{}{
				"username": username,
				"strategy": strategy.name,
				"outcome":  result.Outcome.String(),
			})
			return result
		}
	}

	// The HTML strategy is the end of the line; reaching here means it
	// advanced too, which it only does on an empty body.
	return Result{
		Outcome: OutcomeNotFound,
		Detail:  fmt.Sprintf("Unable to extract data from Instagram profile '%s'.", username),
	}
}

// fetchMobileAPI queries the mobile-client profile endpoint with the
// fixed Android device fingerprint.
func (c *Chain) fetchMobileAPI(ctx context.Context, username string) Result {
	resp, err := c.client.Get(ctx, MobileProfileURL(username), mobileHeaders(), c.cookies)
	if err != nil {
		return transportResult(err)
	}

	if terminal, result := c.classifyStatus(resp.StatusCode, username); terminal {
		return result
	}

	if resp.StatusCode == http.StatusOK && len(strings.TrimSpace(string(resp.Body))) > 0 {
		var payload apiResponse
		if json.Unmarshal(resp.Body, &payload) == nil && payload.Data.User != nil {
			return Result{Outcome: OutcomeSuccess, Profile: buildProfile(username, payload.Data.User)}
		}
	}

	return Result{Outcome: OutcomeAdvance}
}

// fetchWebAPI queries the browser-flavored profile-info endpoint with
// session cookies and CSRF header attached when available.
func (c *Chain) fetchWebAPI(ctx context.Context, username string) Result {
	resp, err := c.client.Get(ctx, WebProfileURL(username), apiHeaders(username, c.appID, c.csrf), c.cookies)
	if err != nil {
		return transportResult(err)
	}

	if terminal, result := c.classifyStatus(resp.StatusCode, username); terminal {
		return result
	}

	if resp.StatusCode == http.StatusOK {
		var payload apiResponse
		if json.Unmarshal(resp.Body, &payload) == nil && payload.Data.User != nil {
			return Result{Outcome: OutcomeSuccess, Profile: buildProfile(username, payload.Data.User)}
		}
	}

	return Result{Outcome: OutcomeAdvance}
}

// fetchLegacyJSON queries the legacy ajax endpoint; the user object may
// live under any of three response shapes.
func (c *Chain) fetchLegacyJSON(ctx context.Context, username string) Result {
	headers := browserHeaders(username, c.appID, c.csrf, true)
	resp, err := c.client.Get(ctx, LegacyProfileURL(username), headers, c.cookies)
	if err != nil {
		return transportResult(err)
	}

	if terminal, result := c.classifyStatus(resp.StatusCode, username); terminal {
		return result
	}

	if resp.StatusCode >= 400 || len(strings.TrimSpace(string(resp.Body))) == 0 {
		return Result{Outcome: OutcomeAdvance}
	}

	var payload legacyResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return Result{Outcome: OutcomeAdvance}
	}

	user := payload.user()
	if user == nil {
		return Result{Outcome: OutcomeAdvance}
	}

	return Result{Outcome: OutcomeSuccess, Profile: buildProfile(username, user)}
}

// fetchHTML requests the plain profile page and scrapes it. This is the
// last strategy: extraction failure is NotFound, not Advance.
func (c *Chain) fetchHTML(ctx context.Context, username string) Result {
	headers := browserHeaders(username, c.appID, c.csrf, false)
	resp, err := c.client.Get(ctx, HTMLProfileURL(username), headers, c.cookies)
	if err != nil {
		return transportResult(err)
	}

	if terminal, result := c.classifyStatus(resp.StatusCode, username); terminal {
		return result
	}

	if len(resp.Body) == 0 {
		return Result{Outcome: OutcomeAdvance}
	}

	profile := extractFromHTML(string(resp.Body), username)
	if profile == nil {
		return Result{
			Outcome: OutcomeNotFound,
			Detail:  fmt.Sprintf("Unable to extract data from Instagram profile '%s'.", username),
		}
	}

	return Result{Outcome: OutcomeSuccess, Profile: profile}
}

// classifyStatus handles the status codes that are terminal at every
// strategy stage.
func (c *Chain) classifyStatus(status int, username string) (bool, Result) {
	switch status {
	case http.StatusNotFound:
		return true, Result{
			Outcome: OutcomeNotFound,
			Detail:  fmt.Sprintf("Instagram profile '%s' not found.", username),
		}
	case http.StatusTooManyRequests:
		return true, Result{
			Outcome: OutcomeRateLimited,
			Detail:  "Instagram responded with HTTP 429 Too Many Requests.",
		}
	}
	return false, Result{}
}

// transportResult maps a classified transport error onto a result
func transportResult(err error) Result {
	if errs.IsTimeout(err) {
		return Result{Outcome: OutcomeTransient, Detail: err.Error()}
	}
	return Result{Outcome: OutcomeUnexpected, Detail: err.Error()}
}
