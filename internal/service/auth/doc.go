// Package auth issues and validates the HS256 bearer tokens that identify the
// owner of every task. The token subject is the owner ID.
package auth
