// Package db provides the SQLite store behind gantry's offline mode.
//
// It keeps the last launchpad batch and, per launchpad, the last launch batch
// fetched from the catalog, together with persisted log entries. Schema
// changes are applied by goose from the embedded migrations directory when a
// connection is opened.
//
// Repository implements the repository interfaces of the domain package.
// Database-shaped structs (dbLaunchpad, dbLaunch, dbLog) carry the sqlx tags
// and are converted to and from domain values at the package boundary.
package db
