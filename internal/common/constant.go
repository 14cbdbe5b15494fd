// Package common contains shared constants and sentinel errors used across
// inkwell components.
package common

// TokenCookieName is the cookie carrying the session token on browser
// requests.
const TokenCookieName = "token"

// AuthHeaderName is the HTTP header that may carry the session token as a
// bearer credential instead of the cookie.
const AuthHeaderName = "Authorization"
