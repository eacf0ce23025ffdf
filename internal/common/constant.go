package common

// AuthorizationHeader carries the bearer token on requests to the server.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// RetryAfterHeader is set on 429 responses.
const RetryAfterHeader = "Retry-After"
