package instagram

import (
	"encoding/json"
	"time"
)

// Profile is the retrieval result for a single handle. It is immutable
// once produced by a strategy; downstream layers only wrap it with the
// cache-origin flag.
type Profile struct {
	Username          string    `json:"username"`
	FullName          string    `json:"full_name,omitempty"`
	Biography         string    `json:"biography,omitempty"`
	Followers         int64     `json:"followers"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	ProfileImagePath  string    `json:"profile_image_path,omitempty"`
	IsCached          bool      `json:"is_cached"`
	ScrapedAt         time.Time `json:"scraped_at"`
}

// UserPayload is the user object shared by the mobile API, web API and
// legacy JSON response shapes.
type UserPayload struct {
	FullName        string        `json:"full_name"`
	Biography       string        `json:"biography"`
	EdgeFollowedBy  *FollowerEdge `json:"edge_followed_by"`
	ProfilePicURL   string        `json:"profile_pic_url"`
	ProfilePicURLHD string        `json:"profile_pic_url_hd"`
}

// FollowerEdge carries the follower count. Unmarshalling is lenient: a
// null edge or a non-numeric count decodes to zero instead of failing
// the whole payload.
type FollowerEdge struct {
	Count int64
}

func (f *FollowerEdge) UnmarshalJSON(data []byte) error {
	var raw struct {
		Count json.Number `json:"count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if n, err := raw.Count.Int64(); err == nil && n > 0 {
		f.Count = n
	}
	return nil
}

// apiResponse is the envelope returned by the mobile and web profile
// endpoints.
type apiResponse struct {
	Data struct {
		User *UserPayload `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// legacyResponse covers the three shapes the legacy ajax endpoint has
// been observed to return.
type legacyResponse struct {
	Graphql struct {
		User *UserPayload `json:"user"`
	} `json:"graphql"`
	Data struct {
		User *UserPayload `json:"user"`
	} `json:"data"`
	Items []struct {
		User *UserPayload `json:"user"`
	} `json:"items"`
}

// user picks the populated user object, checking the shapes in fixed
// priority order.
func (r *legacyResponse) user() *UserPayload {
	if r.Graphql.User != nil {
		return r.Graphql.User
	}
	if r.Data.User != nil {
		return r.Data.User
	}
	if len(r.Items) > 0 && r.Items[0].User != nil {
		return r.Items[0].User
	}
	return nil
}

// sharedDataBlob is the embedded script payload found on profile pages
type sharedDataBlob struct {
	EntryData struct {
		ProfilePage []struct {
			Graphql struct {
				User *UserPayload `json:"user"`
			} `json:"graphql"`
		} `json:"ProfilePage"`
	} `json:"entry_data"`
}

func (b *sharedDataBlob) user() *UserPayload {
	if len(b.EntryData.ProfilePage) == 0 {
		return nil
	}
	return b.EntryData.ProfilePage[0].Graphql.User
}

// buildProfile normalizes a user payload into a Profile. Follower count
// defaults to zero, a blank biography stays empty, and the
// high-resolution picture URL wins over the standard one.
func buildProfile(username string, user *UserPayload) *Profile {
	var followers int64
	if user.EdgeFollowedBy != nil {
		followers = user.EdgeFollowedBy.Count
	}

	picture := user.ProfilePicURLHD
	if picture == "" {
		picture = user.ProfilePicURL
	}

	return &Profile{
		Username:          username,
		FullName:          user.FullName,
		Biography:         user.Biography,
		Followers:         followers,
		ProfilePictureURL: picture,
		ScrapedAt:         time.Now().UTC(),
	}
}
