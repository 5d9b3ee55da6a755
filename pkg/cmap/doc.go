// Package cmap provides a sharded concurrent map keyed by string.
//
// Keys are spread over shards by their murmur3 hash; each shard has its
// own RWMutex. Range and Keys walk shards one at a time, so they observe
// each shard consistently but not the map as a whole.
package cmap
