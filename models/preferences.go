package models

const (
	QualityAuto  = "auto"
	Quality1080p = "1080p"
	Quality720p  = "720p"
	Quality480p  = "480p"

	// MaxRecentSearches bounds the recent search history.
	MaxRecentSearches = 5
)

// Preferences holds the per-user local state: playback toggles and recent searches.
type Preferences struct {
	Autoplay       bool     `json:"autoplay"`
	Quality        string   `json:"quality"`
	RecentSearches []string `json:"recentSearches"`
}

// DefaultPreferences returns the values used for a user without stored preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Autoplay:       true,
		Quality:        QualityAuto,
		RecentSearches: []string{},
	}
}

// ValidQuality reports whether q is an accepted quality label.
func ValidQuality(q string) bool {
	switch q {
	case QualityAuto, Quality1080p, Quality720p, Quality480p:
		return true
	}
	return false
}

// PlaybackUpdate carries optional changes to the playback preferences.
type PlaybackUpdate struct {
	Autoplay *bool   `json:"autoplay,omitempty"`
	Quality  *string `json:"quality,omitempty"`
}
