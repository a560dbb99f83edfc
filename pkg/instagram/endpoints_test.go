package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileURLs(t *testing.T) {
	assert.Equal(t,
		"https://i.instagram.com/api/v1/users/web_profile_info/?username=nasa",
		MobileProfileURL("nasa"))
	assert.Equal(t,
		"https://www.instagram.com/api/v1/users/web_profile_info/?username=nasa",
		WebProfileURL("nasa"))
	assert.Equal(t,
		"https://www.instagram.com/nasa/?__a=1&__d=dis",
		LegacyProfileURL("nasa"))
	assert.Equal(t,
		"https://www.instagram.com/nasa/",
		HTMLProfileURL("nasa"))
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"simple", "nasa", true},
		{"with dots and underscores", "some_user.name", true},
		{"digits", "user123", true},
		{"empty", "", false},
		{"space", "some user", false},
		{"slash", "a/b", false},
		{"too long", "abcdefghijklmnopqrstuvwxyz12345", false},
		{"unicode", "usér", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidUsername(tt.username))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  NASA  ", "nasa"},
		{"@nasa", "nasa"},
		{"nasa/", "nasa"},
		{"@NASA/ ", "nasa"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeUsername(tt.in))
	}
}
