package catalog

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tfkr-ae/gantry/domain"
	"golang.org/x/sync/errgroup"
)

// FallbackImage is shown for records without a picture.
const FallbackImage = "images/placeholder-image.jpg"

// Default paging of the image locator.
const (
	DefaultImagePage  = 1
	DefaultImageLimit = 20
)

type crewImage struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type launchpadImage struct {
	Name   string `json:"name"`
	Images struct {
		Large []string `json:"large"`
	} `json:"images"`
}

type rocketImage struct {
	Name         string   `json:"name"`
	FlickrImages []string `json:"flickr_images"`
}

// FetchImages loads one page of launchpad, rocket and crew pictures
// concurrently. The boxes are grouped in that order; crew members are ordered
// by surname. A page or limit below one uses the default.
func (c *Client) FetchImages(ctx context.Context, page, limit int) ([]domain.ImageBox, error) {
	if page < 1 {
		page = DefaultImagePage
	}
	if limit < 1 {
		limit = DefaultImageLimit
	}

	var (
		crew       result[crewImage]
		launchpads result[launchpadImage]
		rockets    result[rocketImage]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.post(gctx, CrewPath, crewImagesQuery(page, limit), &crew)
	})
	g.Go(func() error {
		return c.post(gctx, LaunchpadsPath, launchpadImagesQuery(page, limit), &launchpads)
	})
	g.Go(func() error {
		return c.post(gctx, RocketsPath, rocketImagesQuery(page, limit), &rockets)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching images: %w", err)
	}

	boxes := make([]domain.ImageBox, 0, len(launchpads.Docs)+len(rockets.Docs)+len(crew.Docs))
	for _, l := range launchpads.Docs {
		boxes = append(boxes, newImageBox(domain.GroupLaunchpad, l.Name, first(l.Images.Large)))
	}
	for _, r := range rockets.Docs {
		boxes = append(boxes, newImageBox(domain.GroupRocket, r.Name, first(r.FlickrImages)))
	}

	crewBoxes := make([]domain.ImageBox, 0, len(crew.Docs))
	for _, m := range crew.Docs {
		crewBoxes = append(crewBoxes, newImageBox(domain.GroupCrew, m.Name, m.Image))
	}
	slices.SortStableFunc(crewBoxes, func(a, b domain.ImageBox) int {
		return strings.Compare(surname(a.Name), surname(b.Name))
	})

	c.logger.Debug("images fetched", "launchpads", len(launchpads.Docs), "rockets", len(rockets.Docs), "crew", len(crew.Docs))
	return append(boxes, crewBoxes...), nil
}

func newImageBox(group, name, image string) domain.ImageBox {
	return domain.ImageBox{Group: group, Name: name, Image: NormalizeImageURL(image)}
}

func first(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

var imgurPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:i\.)?imgur\.com/([a-zA-Z0-9]+)\.?(?:jpg|jpeg|png|gif)?`)

// NormalizeImageURL rewrites imgur links to their direct i.imgur.com PNG form
// and replaces an empty URL with FallbackImage. Other URLs are returned as is.
func NormalizeImageURL(url string) string {
	if strings.TrimSpace(url) == "" {
		return FallbackImage
	}
	if m := imgurPattern.FindStringSubmatch(url); m != nil {
		return "https://i.imgur.com/" + m[1] + ".png"
	}
	return url
}

// Names returns the names of boxes, in order.
func Names(boxes []domain.ImageBox) []string {
	names := make([]string, len(boxes))
	for i, box := range boxes {
		names[i] = box.Name
	}
	return names
}

// FilterNames returns the names containing value, ignoring case. Values
// shorter than two characters match nothing.
func FilterNames(names []string, value string) []string {
	needle := strings.ToLower(value)
	if len([]rune(needle)) < 2 {
		return []string{}
	}
	matched := []string{}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), needle) {
			matched = append(matched, name)
		}
	}
	return matched
}

// FindImage returns the box whose name equals name, ignoring case.
func FindImage(boxes []domain.ImageBox, name string) (domain.ImageBox, bool) {
	if strings.TrimSpace(name) == "" {
		return domain.ImageBox{}, false
	}
	for _, box := range boxes {
		if strings.EqualFold(box.Name, name) {
			return box, true
		}
	}
	return domain.ImageBox{}, false
}
