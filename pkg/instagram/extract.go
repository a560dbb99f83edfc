package instagram

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Embedded-blob markers, checked in order. The first is the payload the
// SPA loads after hydration, the second is the older server-rendered
// shared data assignment.
var (
	additionalDataRe = regexp.MustCompile(`(?s)window\.__additionalDataLoaded\('feed',(\{.*?\})\);`)
	sharedDataRe     = regexp.MustCompile(`(?s)window\._sharedData\s*=\s*(\{.*?\});`)
)

// Direct field extraction, used when no blob yields a user object
var (
	followersRe = regexp.MustCompile(`"edge_followed_by"\s*:\s*\{"count"\s*:\s*(\d+)\}`)
	picRe       = regexp.MustCompile(`"profile_pic_url_hd"\s*:\s*"([^"]+)"`)
	fullNameRe  = regexp.MustCompile(`"full_name"\s*:\s*"([^"]*)"`)
	bioRe       = regexp.MustCompile(`"biography"\s*:\s*"([^"]*)"`)
)

// extractFromHTML parses a profile page. It first looks for an embedded
// JSON blob with a complete user object, then falls back to pulling the
// individual fields straight out of the markup. Returns nil when neither
// a follower count nor a picture URL can be recovered.
func extractFromHTML(page, username string) *Profile {
	if blob := extractJSONBlob(page); blob != nil {
		if user := blob.user(); user != nil {
			return buildProfile(username, user)
		}
	}

	var followers int64
	if m := followersRe.FindStringSubmatch(page); m != nil {
		followers, _ = strconv.ParseInt(m[1], 10, 64)
	}

	var picture string
	if m := picRe.FindStringSubmatch(page); m != nil {
		picture = normalizeURL(decodeEscapes(m[1]))
	}

	if followers == 0 && picture == "" {
		return nil
	}

	profile := buildProfile(username, &UserPayload{})
	profile.Followers = followers
	profile.ProfilePictureURL = picture

	if m := fullNameRe.FindStringSubmatch(page); m != nil {
		profile.FullName = decodeEscapes(m[1])
	}
	if m := bioRe.FindStringSubmatch(page); m != nil {
		profile.Biography = decodeEscapes(m[1])
	}

	return profile
}

// extractJSONBlob locates and decodes the embedded script payload.
// Script tags are walked via goquery first so the markers only need to
// match within a single script body; a raw scan of the page covers
// markup goquery cannot parse.
func extractJSONBlob(page string) *sharedDataBlob {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		var blob *sharedDataBlob
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			blob = decodeBlobMarkers(sel.Text())
			return blob == nil
		})
		if blob != nil {
			return blob
		}
	}

	return decodeBlobMarkers(page)
}

// decodeBlobMarkers tries the two marker patterns against a script body
func decodeBlobMarkers(script string) *sharedDataBlob {
	m := additionalDataRe.FindStringSubmatch(script)
	if m == nil {
		m = sharedDataRe.FindStringSubmatch(script)
	}
	if m == nil {
		return nil
	}

	var blob sharedDataBlob
	if err := json.Unmarshal([]byte(m[1]), &blob); err != nil {
		return nil
	}
	return &blob
}

// decodeEscapes unescapes a field pulled out of raw markup. The fields
// come from embedded JSON, so JSON string escapes are decoded first
// (including the \/ JSON allows), then HTML entities.
func decodeEscapes(s string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &decoded); err == nil {
		s = decoded
	}
	return html.UnescapeString(s)
}

// normalizeURL fixes the ampersand encoding the markup leaves behind in
// signed picture URLs: a literal \u0026 sequence that survived escape
// decoding becomes a plain ampersand.
func normalizeURL(s string) string {
	return strings.ReplaceAll(s, "\\u0026", "&")
}
