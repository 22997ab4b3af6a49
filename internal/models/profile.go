package models

// Profile is the per-username record backing a tree page.
type Profile struct {
	Username string   `json:"username"`
	Blessing string   `json:"blessing"`
	Photos   []string `json:"photos"`
	ShortID  string   `json:"shortId,omitempty"`
}

// ProfileResponse is a Profile plus the computed shareable link.
type ProfileResponse struct {
	Profile
	ShortURL string `json:"shortUrl"`
}

type DeletePhotoRequest struct {
	Username string `json:"username"`
	PhotoURL string `json:"photoUrl"`
}
