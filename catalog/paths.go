package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var plainOwnerID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ownerHashLen is the number of hex characters kept from the owner digest.
const ownerHashLen = 32

// OwnerSegment returns the first path segment for ownerID.
func OwnerSegment(ownerID string) string {
	if plainOwnerID.MatchString(ownerID) {
		return ownerID
	}
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])[:ownerHashLen]
}

// ObjectPath returns the backend path of object id owned by ownerID.
func ObjectPath(ownerID, id string) string {
	return OwnerSegment(ownerID) + "/" + id[:2] + "/" + id
}

// SharePath returns the temp-class path of a materialized share copy.
func SharePath(id string) string {
	return "shares/" + id[:2] + "/" + id
}
