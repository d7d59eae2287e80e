package domain

// Launchpad is a launch site as returned by the catalog API.
// Fields missing from a response decode to their zero value.
type Launchpad struct {
	ID              string   `json:"id"`               // Catalog identifier.
	Name            string   `json:"name"`             // Short display name, e.g. "KSC LC 39A".
	FullName        string   `json:"full_name"`        // Long descriptive name.
	Locality        string   `json:"locality"`         // Nearest town or base.
	Region          string   `json:"region"`           // State or region, e.g. "Florida".
	Status          string   `json:"status"`           // One of the LaunchpadStatus values, or anything the API sends.
	LaunchAttempts  int      `json:"launch_attempts"`  // Number of launches attempted from the pad.
	LaunchSuccesses int      `json:"launch_successes"` // Number of successful launches from the pad.
	Launches        []string `json:"launches"`         // IDs of the launches made from the pad.
}

// Launchpad status values reported by the catalog API.
const (
	StatusActive            = "active"
	StatusInactive          = "inactive"
	StatusUnknown           = "unknown"
	StatusRetired           = "retired"
	StatusLost              = "lost"
	StatusUnderConstruction = "under construction"
)
