package models

import (
	"encoding/json"
	"time"
)

const (
	// MaxProfiles caps the number of profiles per user.
	MaxProfiles = 5
	// MaxProfileTitleLength is measured in runes.
	MaxProfileTitleLength = 10
)

// Profile is one viewer within a user account. Library state is scoped to it.
type Profile struct {
	ID         string    `json:"profileId"`
	Title      string    `json:"title"`
	AvatarKey  string    `json:"avatarKey,omitempty"`
	PosterPath string    `json:"posterPath,omitempty"`
	AgeLimit   int       `json:"ageLimit"`
	AdultOnly  bool      `json:"adultOnly"`
	Locked     bool      `json:"profileLock"`
	PinHash    string    `json:"-"`
	Language   string    `json:"language,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HasPin returns true if the profile has a PIN set.
func (p Profile) HasPin() bool {
	return p.PinHash != ""
}

// MarshalJSON includes the computed hasPin field.
func (p Profile) MarshalJSON() ([]byte, error) {
	type profileAlias Profile
	return json.Marshal(&struct {
		profileAlias
		HasPin bool `json:"hasPin"`
	}{
		profileAlias: profileAlias(p),
		HasPin:       p.HasPin(),
	})
}

// ProfileUpdate carries optional profile field changes.
type ProfileUpdate struct {
	Title      *string `json:"title,omitempty"`
	AvatarKey  *string `json:"avatarKey,omitempty"`
	PosterPath *string `json:"posterPath,omitempty"`
	AgeLimit   *int    `json:"ageLimit,omitempty"`
	AdultOnly  *bool   `json:"adultOnly,omitempty"`
	Language   *string `json:"language,omitempty"`
}
