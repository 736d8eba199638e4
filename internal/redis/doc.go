// Package redis wraps the go-redis client and the identity verification cache.
//
// The cache is optional: when Redis is not configured the identity client
// talks to the auth provider on every request. Cache failures degrade to a
// provider round trip, never to a request failure.
package redis
