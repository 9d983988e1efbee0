// Package share implements the share-link lifecycle: an owner issues a token
// granting time-limited, count-limited access to one stored object, callers
// redeem it, and the owner may revoke it.
//
// The Service validates policy and mints tokens. Persistence and the atomic
// redemption step belong to a Store:
//
//   - share/memory: mutex-guarded map, for tests and single-process use
//   - share/redisstore: Redis hashes with Lua scripts for redeem and revoke
//   - share/gormstore: a share_links table updated with one conditional UPDATE
//
// Every store passes the conformance suite in share/sharetest.
package share
