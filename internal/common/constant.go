package common

// AuthorizationHeaderName carries the session token on API requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the session token in the Authorization header.
const BearerPrefix = "Bearer "

// SessionTokenBytes is the number of random bytes behind a session token.
const SessionTokenBytes = 32
