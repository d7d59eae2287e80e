package catalog

// Catalog API endpoints, relative to the base URL.
const (
	DefaultBaseURL = "https://api.spacexdata.com"

	LaunchpadsPath = "/v4/launchpads/query"
	LaunchesPath   = "/v5/launches/query"
	RocketsPath    = "/v4/rockets/query"
	CrewPath       = "/v4/crew/query"
)

// Query is the body of a POST to a /query endpoint.
type Query struct {
	Query    map[string]any `json:"query"`
	Options  Options        `json:"options"`
	Populate []Populate     `json:"populate,omitempty"`
}

// Options controls paging, sorting and field selection of a query.
type Options struct {
	Select   map[string]int    `json:"select,omitempty"`
	Sort     map[string]string `json:"sort,omitempty"`
	Page     int               `json:"page,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Populate []Populate        `json:"populate,omitempty"`
}

// Populate expands a referenced field of the result documents.
type Populate struct {
	Path   string         `json:"path"`
	Select map[string]int `json:"select,omitempty"`
	Limit  int            `json:"limit,omitempty"`
}

// result is the page object returned by every /query endpoint.
type result[T any] struct {
	Docs []T `json:"docs"`
}

var byNameAsc = map[string]string{"name": "asc"}

// LaunchpadsQuery selects every launchpad, sorted by name.
func LaunchpadsQuery(limit int) Query {
	return Query{
		Query:   map[string]any{},
		Options: Options{Limit: limit, Sort: byNameAsc},
	}
}

// LaunchesQuery selects the launches made from launchpadID, sorted by name.
func LaunchesQuery(launchpadID string, limit int) Query {
	return Query{
		Query:   map[string]any{"launchpad": launchpadID},
		Options: Options{Limit: limit, Sort: byNameAsc},
	}
}

func crewImagesQuery(page, limit int) Query {
	return Query{
		Query: map[string]any{},
		Options: Options{
			Select: map[string]int{"name": 1, "image": 1},
			Sort:   byNameAsc,
			Page:   page,
			Limit:  limit,
		},
	}
}

func launchpadImagesQuery(page, limit int) Query {
	return Query{
		Query: map[string]any{},
		Options: Options{
			Select: map[string]int{"name": 1, "images": 1},
			Sort:   byNameAsc,
			Page:   page,
			Limit:  limit,
		},
		Populate: []Populate{{Path: "images", Select: map[string]int{"large": 1}, Limit: 1}},
	}
}

func rocketImagesQuery(page, limit int) Query {
	return Query{
		Query: map[string]any{},
		Options: Options{
			Select:   map[string]int{"name": 1, "flickr_images": 1},
			Sort:     byNameAsc,
			Page:     page,
			Limit:    limit,
			Populate: []Populate{{Path: "flickr_images", Limit: 1}},
		},
	}
}
