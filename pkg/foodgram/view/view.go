// Package view carries the per-request facts needed to render API representations.
package view

import "strings"

// Context is passed explicitly to every renderer instead of reading the request.
// ViewerID is nil for anonymous callers.
type Context struct {
	ViewerID *uint
	BaseURL  string
}

// Authenticated reports whether the viewer is known
func (c Context) Authenticated() bool {
	return c.ViewerID != nil
}

// Viewer returns the viewer id, or 0 for anonymous callers
func (c Context) Viewer() uint {
	if c.ViewerID == nil {
		return 0
	}
	return *c.ViewerID
}

// AbsoluteURL turns a stored media reference into an absolute URL.
// Empty references and references that are already absolute are returned unchanged.
func (c Context) AbsoluteURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}
