// Package snippet defines the legacy single-file package abstraction. Every
// snippet is paired with a synthesized package release; deleting the snippet
// leaves the release in place.
package snippet

import "time"

// Type enumerates what a snippet describes.
type Type string

const (
	TypeBoard     Type = "board"
	TypePackage   Type = "package"
	TypeModel     Type = "model"
	TypeFootprint Type = "footprint"
)

// ValidType reports whether t is a known snippet type.
func ValidType(t Type) bool {
	switch t {
	case TypeBoard, TypePackage, TypeModel, TypeFootprint:
		return true
	}
	return false
}

// Snippet bundles code, compiled output, and circuit JSON under an
// owner/unscoped name.
type Snippet struct {
	ID           string        `json:"snippet_id"`
	ReleaseID    string        `json:"package_release_id"`
	Name         string        `json:"name"`
	UnscopedName string        `json:"unscoped_name"`
	OwnerName    string        `json:"owner_name"`
	Code         string        `json:"code"`
	DTS          string        `json:"dts,omitempty"`
	CompiledJS   string        `json:"compiled_js,omitempty"`
	CircuitJSON  []interface{} `json:"circuit_json,omitempty"`
	Type         Type          `json:"snippet_type"`
	Description  string        `json:"description,omitempty"`
	IsPrivate    bool          `json:"is_private"`
	IsPublic     bool          `json:"is_public"`
	IsUnlisted   bool          `json:"is_unlisted"`
	StarCount    int           `json:"star_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Star is a join row recording that an account starred a snippet.
type Star struct {
	AccountID  string    `json:"account_id"`
	SnippetID  string    `json:"snippet_id"`
	HasStarred bool      `json:"has_starred"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
