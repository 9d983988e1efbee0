// Package redis provides the go-redis client used by the Redis share-link
// store, with filevault logging, pool configuration and component lifecycle.
package redis
