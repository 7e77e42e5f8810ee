// Package auth issues and validates the HMAC-signed JWTs that guard the
// engine's admin HTTP API.
package auth
