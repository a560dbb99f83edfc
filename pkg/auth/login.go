package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"igprofile/pkg/instagram"
	"igprofile/pkg/logger"
)

const (
	loginURL = "https://www.instagram.com/accounts/login/"

	// loginWait bounds how long the post-submit cookie poll runs. The
	// checkpoint/2FA interstitials can hold the page for a while.
	loginWait     = 45 * time.Second
	loginPollStep = 500 * time.Millisecond
)

// LoginOptions tunes the headless login flow
type LoginOptions struct {
	// Headless disables the visible browser window. On by default.
	Headless bool
	// Timeout bounds the whole login flow
	Timeout time.Duration
}

// DefaultLoginOptions returns the options used by the CLI
func DefaultLoginOptions() LoginOptions {
	return LoginOptions{
		Headless: true,
		Timeout:  2 * time.Minute,
	}
}

// Login drives a browser through the login form and captures the
// session cookies. The stealth page profile hides the usual automation
// fingerprints from the login page's bot checks.
func Login(ctx context.Context, username, password string, opts LoginOptions, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open stealth page: %w", err)
	}
	page = page.Timeout(opts.Timeout)

	log.InfoWithFields("opening login page", map[string]interface{}{
		"username": username,
	})

	if err := page.Navigate(loginURL); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("login page did not load: %w", err)
	}

	if err := fillField(page, `input[name="username"]`, username); err != nil {
		return nil, err
	}
	if err := fillField(page, `input[name="password"]`, password); err != nil {
		return nil, err
	}

	submit, err := page.Element(`button[type="submit"]`)
	if err != nil {
		return nil, fmt.Errorf("login submit button not found: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("failed to submit login form: %w", err)
	}

	session, err := waitForSession(ctx, browser, username)
	if err != nil {
		return nil, err
	}

	log.InfoWithFields("login succeeded", map[string]interface{}{
		"username": username,
	})
	return session, nil
}

func fillField(page *rod.Page, selector, value string) error {
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("login field %s not found: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to fill login field %s: %w", selector, err)
	}
	return nil
}

// waitForSession polls the browser cookie jar until the session cookie
// shows up or the wait budget runs out.
func waitForSession(ctx context.Context, browser *rod.Browser, username string) (*Session, error) {
	deadline := time.Now().Add(loginWait)
	ticker := time.NewTicker(loginPollStep)
	defer ticker.Stop()

	for {
		cookies, err := browser.GetCookies()
		if err == nil {
			session := &Session{Username: username}
			for _, cookie := range cookies {
				switch cookie.Name {
				case "sessionid":
					session.SessionID = cookie.Value
				case "csrftoken":
					session.CSRFToken = cookie.Value
				case "ds_user_id":
					session.DSUserID = cookie.Value
				}
			}
			if session.SessionID != "" {
				session.SavedAt = time.Now()
				return session, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("login did not produce a session cookie; check credentials or complete the challenge manually")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Validate checks a stored session against the profile endpoint for its
// own account. A 200 means the cookies are still accepted.
func Validate(ctx context.Context, session *Session, appID string, timeout time.Duration) bool {
	if session == nil || session.SessionID == "" || session.Username == "" {
		return false
	}

	client, err := instagram.NewClient(timeout, "", 0, nil)
	if err != nil {
		return false
	}

	headers := map[string]string{
		"User-Agent":  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Accept":      "application/json",
		"X-IG-App-ID": appID,
	}
	if session.CSRFToken != "" {
		headers["X-CSRFToken"] = session.CSRFToken
	}

	resp, err := client.Get(ctx, instagram.WebProfileURL(session.Username), headers, session.CookieMap())
	if err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK
}

// EnsureSession returns a valid session: a stored one when it still
// passes validation, otherwise a fresh headless login when credentials
// are configured. Callers treat an error as "run anonymous".
func EnsureSession(ctx context.Context, manager *Manager, username, password, appID string, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	var stored *Session
	if username != "" {
		stored, _ = manager.Retrieve(username)
	}
	if stored == nil {
		stored, _ = manager.RetrieveDefault()
	}

	if stored != nil {
		if Validate(ctx, stored, appID, 15*time.Second) {
			return stored, nil
		}
		log.WarnWithFields("stored session rejected, reauthenticating", map[string]interface{}{
			"username": stored.Username,
		})
	}

	if username == "" || password == "" {
		return nil, ErrSessionNotFound
	}

	session, err := Login(ctx, username, password, DefaultLoginOptions(), log)
	if err != nil {
		return nil, err
	}

	if err := manager.Store(session); err != nil {
		log.WarnWithFields("unable to persist session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return session, nil
}
