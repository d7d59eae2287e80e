// Package catalog is the client for the remote launch catalog API.
//
// Every collection is read through a POST to its /query endpoint with a
// query document describing filters, selected fields, sort order and limits.
// The API answers with a page object whose docs field holds the matching
// records. Client implements domain.Catalog for launchpads and launches, and
// also locates the images shown by the image locator.
package catalog
