// Package catalog maps owners, folders and display names onto backend
// paths. It enforces ownership, keeps file and folder records in a
// MetadataStore and coordinates share links with the share service.
//
// Backend paths never contain caller-supplied names:
//
//	<owner-segment>/<id[0:2]>/<id>
//
// where id is a random UUID and the owner segment is the owner id when it is
// a plain token, otherwise a truncated SHA-256 of it.
package catalog
