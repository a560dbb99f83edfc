package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sharedDataPage = `<html><head>
<script type="text/javascript">
window._sharedData = {"entry_data":{"ProfilePage":[{"graphql":{"user":{
	"full_name":"Space Agency",
	"biography":"Exploring the universe",
	"edge_followed_by":{"count":97000000},
	"profile_pic_url":"https://cdn.example/low.jpg",
	"profile_pic_url_hd":"https://cdn.example/hd.jpg"
}}}]}};
</script>
</head><body></body></html>`

func TestExtractFromHTMLSharedDataBlob(t *testing.T) {
	profile := extractFromHTML(sharedDataPage, "nasa")
	require.NotNil(t, profile)

	assert.Equal(t, "nasa", profile.Username)
	assert.Equal(t, "Space Agency", profile.FullName)
	assert.Equal(t, "Exploring the universe", profile.Biography)
	assert.Equal(t, int64(97000000), profile.Followers)
	assert.Equal(t, "https://cdn.example/hd.jpg", profile.ProfilePictureURL)
}

func TestExtractFromHTMLAdditionalDataBlob(t *testing.T) {
	page := `<script>window.__additionalDataLoaded('feed',{"entry_data":{"ProfilePage":[{"graphql":{"user":{"full_name":"Feed User","edge_followed_by":{"count":42}}}}]}});</script>`

	profile := extractFromHTML(page, "feeduser")
	require.NotNil(t, profile)
	assert.Equal(t, "Feed User", profile.FullName)
	assert.Equal(t, int64(42), profile.Followers)
}

func TestExtractFromHTMLRegexFallback(t *testing.T) {
	page := `<html><body><script>
		{"seo":{"edge_followed_by":{"count":512},
		"profile_pic_url_hd":"https:\/\/cdn.example\/p.jpg?x=1&y=2",
		"full_name":"Jörg & Co",
		"biography":"line one\nline two"}}
	</script></body></html>`

	profile := extractFromHTML(page, "joerg")
	require.NotNil(t, profile)

	assert.Equal(t, int64(512), profile.Followers)
	assert.Equal(t, "https://cdn.example/p.jpg?x=1&y=2", profile.ProfilePictureURL)
	assert.Equal(t, "Jörg & Co", profile.FullName)
	assert.Equal(t, "line one\nline two", profile.Biography)
}

func TestExtractFromHTMLNothingUsable(t *testing.T) {
	assert.Nil(t, extractFromHTML("<html><body>Login required</body></html>", "nobody"))
	assert.Nil(t, extractFromHTML("", "nobody"))
}

func TestExtractFromHTMLFollowersOnly(t *testing.T) {
	page := `{"edge_followed_by":{"count":7}}`
	profile := extractFromHTML(page, "tiny")
	require.NotNil(t, profile)
	assert.Equal(t, int64(7), profile.Followers)
	assert.Empty(t, profile.ProfilePictureURL)
}

func TestDecodeEscapes(t *testing.T) {
	assert.Equal(t, "café", decodeEscapes(`caf\u00e9`))
	assert.Equal(t, "line one\nline two", decodeEscapes(`line one\nline two`))
	assert.Equal(t, "a & b", decodeEscapes("a &amp; b"))
	// Already-plain text passes through untouched
	assert.Equal(t, "plain text", decodeEscapes("plain text"))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example/p.jpg?a=1&b=2",
		normalizeURL(`https://cdn.example/p.jpg?a=1\u0026b=2`))
	assert.Equal(t, "https://cdn.example/p.jpg", normalizeURL("https://cdn.example/p.jpg"))
}
