// Package cache computes content-addressed cache keys and moves cached
// build artifacts between the workspace and a cache store.
//
// A key is the SHA-256 of the concatenated contents of the files listed in a
// job's cache spec, taken in the listed order, optionally namespaced with a
// prefix ("prefix:hash"). Two jobs whose key inputs have identical bytes
// share a key; any content change produces a new one.
//
// The store is an explicit injected dependency, never a singleton, so tests
// can substitute an in-memory filesystem. Saves are atomic last-writer-wins
// replacements; concurrent saves under one key need no locking beyond that.
package cache
