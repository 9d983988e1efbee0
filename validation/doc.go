// Package validation turns filevault request validation failures into
// INVALID_INPUT errors with per-field details.
//
// Struct tag validation covers request bodies and catalog requests:
//
//	type CreateFolderRequest struct {
//	    Name  string `json:"name" validate:"required,display_name"`
//	    Class string `json:"class" validate:"required,storage_class"`
//	}
//	err := validation.Validate(req)
//
// Programmatic validation covers path and query parameters:
//
//	v := validation.New()
//	v.RequiredUUID("id", c.Param("id")).Range("page_size", size, 1, 200)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
