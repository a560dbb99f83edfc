package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for the browser-facing site
	BaseURL = "https://www.instagram.com"

	// MobileBaseURL is the base URL for the mobile client API
	MobileBaseURL = "https://i.instagram.com"

	// ProfileInfoEndpoint is the endpoint pattern for profile metadata
	ProfileInfoEndpoint = "/api/v1/users/web_profile_info/"
)

// MobileProfileURL constructs the mobile-client profile endpoint URL
func MobileProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", MobileBaseURL, ProfileInfoEndpoint, params.Encode())
}

// WebProfileURL constructs the browser-flavored profile endpoint URL
func WebProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", BaseURL, ProfileInfoEndpoint, params.Encode())
}

// LegacyProfileURL constructs the legacy ajax-style profile URL
func LegacyProfileURL(username string) string {
	return fmt.Sprintf("%s/%s/?__a=1&__d=dis", BaseURL, username)
}

// HTMLProfileURL constructs the plain profile page URL
func HTMLProfileURL(username string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// ProfileRefererURL derives the referer header value for a handle
func ProfileRefererURL(username string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// IsValidUsername checks if a username is valid according to the
// platform's handle rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername normalizes a raw handle: whitespace trimmed, the
// leading @ removed, lowercased.
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	username = strings.TrimRight(username, "/ ")
	return strings.ToLower(username)
}
