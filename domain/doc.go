// Package domain defines the entities browsed by gantry, launchpads, launches
// and located images, together with the contracts for fetching and storing them.
//
// The catalog client, the snapshot store and the table consumers all exchange
// these types, so the package has no dependency on any of them.
package domain
