// Package listview implements the client-side list state shared by every
// admin screen: case-insensitive search over projected fields, 1-indexed
// page slicing, and the bounded page-number window shown under a table.
//
// All functions are pure and total. Out-of-range pages and non-positive
// page sizes are clamped instead of rejected.
package listview
