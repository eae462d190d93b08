package profile

import (
	"path"
	"time"
)

// DefaultID is the well-known key of the site owner's profile record.
const DefaultID = "default"

// Public retrieval paths for the profile's assets.
const (
	ImagePath  = "/api/profile/image"
	ResumePath = "/api/profile/resume"
)

// Profile is the singleton owner record. Asset references live here.
type Profile struct {
	ID                string
	Name              string
	Title             string
	Bio               string
	Email             string
	Phone             string
	Location          string
	Summary           string
	YearsOfExperience int
	SocialLinks       SocialLinks

	ProfileImage Asset
	Resume       Asset

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SocialLinks holds optional outbound profile URLs.
type SocialLinks struct {
	GitHub    string `json:"github"`
	LinkedIn  string `json:"linkedin"`
	Twitter   string `json:"twitter"`
	Portfolio string `json:"portfolio"`
	Instagram string `json:"instagram"`
}

// Asset is a stored file referenced by the profile. An empty Key means none.
type Asset struct {
	Key          string
	MimeType     string
	SizeBytes    int64
	OriginalName string
	Pages        int
	UploadedAt   time.Time
}

// Empty reports whether the asset slot holds no reference.
func (a Asset) Empty() bool { return a.Key == "" }

// StoredName is the last path element of the storage key.
func (a Asset) StoredName() string {
	if a.Key == "" {
		return ""
	}
	return path.Base(a.Key)
}

// Reference is the public locator for the asset served at base. The stored
// name is appended so clients drop cached copies after a replacement.
func (a Asset) Reference(base string) string {
	if a.Key == "" {
		return ""
	}
	return base + "?v=" + a.StoredName()
}

// Placeholder returns the record created when an asset arrives before the
// owner has saved any identity fields.
func Placeholder() Profile {
	return Profile{
		ID:    DefaultID,
		Name:  "Your Name",
		Title: "Your Title",
	}
}
