// Package cache implements the key/value cache layer.
//
// The Redis-backed Store is the production implementation; Memory is its
// in-process twin used in tests and as a fallback. Both treat expired entries
// as absent on read and absorb backend failures internally: callers see a
// cache miss, never an error, so a broken cache can degrade reads but cannot
// abort a mutation pipeline.
package cache
