package domain

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// Launch is a single launch made from a launchpad.
type Launch struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FlightNumber int       `json:"flight_number"`
	DateUTC      time.Time `json:"date_utc"`
	Launchpad    string    `json:"launchpad"` // ID of the launchpad the launch was made from.
	Success      bool      `json:"success"`   // False when the API reports null.
	Links        Links     `json:"links"`
}

// Links holds the external references of a launch.
type Links struct {
	Wikipedia string `json:"wikipedia"`
}

// WikipediaTitle returns the article title of the launch's Wikipedia link,
// with underscores turned into spaces. It returns an empty string when there
// is no usable link.
func (l Launch) WikipediaTitle() string {
	if l.Links.Wikipedia == "" {
		return ""
	}
	u, err := url.Parse(l.Links.Wikipedia)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	title, err := url.PathUnescape(path.Base(u.EscapedPath()))
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(title, "_", " ")
}
