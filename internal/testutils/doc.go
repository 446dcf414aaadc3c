// Package testutils provides helpers shared by tests across packages:
// a capturing slog handler, a JWT service signed with a fixed test secret,
// and canned task runners. Nothing here is used outside of _test.go files.
package testutils
