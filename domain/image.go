package domain

import "context"

// Image groups shown by the image locator.
const (
	GroupLaunchpad = "🟩 Launchpad"
	GroupRocket    = "🟥 Rocket"
	GroupCrew      = "🟦 Crew"
)

// ImageBox is one named picture found by the image locator.
type ImageBox struct {
	Group string `json:"group"` // One of the Group constants.
	Name  string `json:"name"`
	Image string `json:"image"` // Absolute URL, or the placeholder path.
}

// ImageLocator finds pictures of launchpads, rockets and crew.
type ImageLocator interface {
	FetchImages(ctx context.Context, page, limit int) ([]ImageBox, error)
}
