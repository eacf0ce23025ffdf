// Package client is the client-side transport and local-store bootstrap.
//
// HTTPClient implements Client against the plantcare HTTP API. Every failure
// is a *RemoteError whose kind can be matched with errors.Is against
// ErrTimeout, ErrServerError, ErrRateLimited, ErrNotFound, ErrUnauthorized,
// ErrBadRequest and ErrUnavailable. A call cancelled by its context returns
// the bare context error instead. The client never retries.
//
// InitDatabase and NewRepositories open the SQLite store and apply the
// embedded goose migrations.
package client
