package instagram

import (
	"fmt"
	"math/rand"
)

// fingerprint pairs a Chrome build with its matching client-hint brand
// list so the user agent and sec-ch-ua headers never disagree.
type fingerprint struct {
	chromeBuild string
	brands      string
}

// fingerprints is the fixed catalog requests rotate through
var fingerprints = []fingerprint{
	{
		chromeBuild: "124.0.6367.118",
		brands:      `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`,
	},
	{
		chromeBuild: "123.0.6312.124",
		brands:      `"Chromium";v="123", "Google Chrome";v="123", "Not-A.Brand";v="99"`,
	},
	{
		chromeBuild: "122.0.6261.128",
		brands:      `"Chromium";v="122", "Google Chrome";v="122", "Not.A/Brand";v="24"`,
	},
}

// mobileUserAgent is the fixed Android device fingerprint used by the
// mobile API strategy.
const mobileUserAgent = "Instagram 219.0.0.12.117 Android (26/8.0.0; 640dpi; 1440x2560; " +
	"Google; Pixel 3 XL; Crosshatch; qcom; en_US; 123456789)"

// mobileAppID is the application identifier the Android client reports
const mobileAppID = "567067343352427"

func pickFingerprint() fingerprint {
	return fingerprints[rand.Intn(len(fingerprints))]
}

func desktopUserAgent(fp fingerprint) string {
	return fmt.Sprintf(
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/%s Safari/537.36", fp.chromeBuild)
}

// mobileHeaders builds the fixed device fingerprint header set for the
// mobile API strategy.
func mobileHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                  mobileUserAgent,
		"Accept":                      "application/json",
		"Accept-Language":             "en-US",
		"X-IG-App-ID":                 mobileAppID,
		"X-IG-Capabilities":           "3brTvw==",
		"X-IG-Connection-Type":        "WIFI",
		"X-IG-Connection-Speed":       "0kbps",
		"X-IG-Bandwidth-Speed-KBPS":   "0.000",
		"X-IG-Bandwidth-TotalBytes-B": "0",
		"X-IG-Bandwidth-TotalTime-MS": "0",
	}
}

// apiHeaders builds the browser-flavored header set for the web API
// strategy, with a freshly drawn fingerprint per request.
func apiHeaders(username, appID, csrfToken string) map[string]string {
	fp := pickFingerprint()
	headers := map[string]string{
		"User-Agent":         desktopUserAgent(fp),
		"Accept":             "application/json",
		"Referer":            ProfileRefererURL(username),
		"X-IG-App-ID":        appID,
		"DNT":                "1",
		"Sec-CH-UA":          fp.brands,
		"Sec-CH-UA-Platform": `"Windows"`,
		"Sec-Fetch-Site":     "same-origin",
		"Sec-Fetch-Mode":     "cors",
		"Pragma":             "no-cache",
		"Cache-Control":      "no-cache",
		"X-Requested-With":   "XMLHttpRequest",
	}
	if csrfToken != "" {
		headers["X-CSRFToken"] = csrfToken
	}
	return headers
}

// browserHeaders builds the header set for the legacy JSON and HTML
// strategies. jsonRequest switches the accept/fetch hints between an
// ajax call and a full document navigation.
func browserHeaders(username, appID, csrfToken string, jsonRequest bool) map[string]string {
	fp := pickFingerprint()
	headers := map[string]string{
		"User-Agent":         desktopUserAgent(fp),
		"Accept-Language":    "en-US,en;q=0.9",
		"Referer":            ProfileRefererURL(username),
		"DNT":                "1",
		"Sec-CH-UA":          fp.brands,
		"Sec-CH-UA-Platform": `"Windows"`,
		"Sec-Fetch-Site":     "same-origin",
		"Pragma":             "no-cache",
		"Cache-Control":      "no-cache",
		"X-IG-App-ID":        appID,
	}

	if jsonRequest {
		headers["Accept"] = "application/json, text/javascript, */*; q=0.01"
		headers["Sec-Fetch-Dest"] = "empty"
		headers["Sec-Fetch-Mode"] = "cors"
		headers["X-Requested-With"] = "XMLHttpRequest"
	} else {
		headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
		headers["Sec-Fetch-Dest"] = "document"
		headers["Sec-Fetch-Mode"] = "navigate"
	}

	if csrfToken != "" {
		headers["X-CSRFToken"] = csrfToken
	}
	return headers
}
