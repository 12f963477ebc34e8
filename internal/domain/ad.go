package domain

import "fmt"

// Ad is one entry of the public ad catalogue.
type Ad struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Active      bool   `json:"isActive"`
}

// Label is the selector text, falling back to the id when the title is missing.
func (a Ad) Label() string {
	if a.Title == "" {
		return fmt.Sprintf("Ad %s", a.ID)
	}
	return a.Title
}

// FindAd returns the ad with the given id.
func FindAd(ads []Ad, id string) (Ad, bool) {
	for _, a := range ads {
		if a.ID == id {
			return a, true
		}
	}
	return Ad{}, false
}
