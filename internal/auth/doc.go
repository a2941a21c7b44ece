// Package auth obtains bearer tokens for the accounting API.
//
// The token endpoint is not configured directly. It is discovered from the
// host's OpenID metadata document, then a client-credentials grant is
// exchanged with the client id and secret sent as HTTP Basic credentials.
//
// Tokens are cached in the Provider and reused until they are about to
// expire. There is no background refresh: the first Token call after expiry
// repeats discovery and exchange. Failures are returned, never retried.
package auth
