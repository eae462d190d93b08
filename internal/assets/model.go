package assets

import (
	"errors"
	"io"
	"mime"
	"strings"

	"portfolio-backend/internal/profile"
)

// Kind names an asset slot on the profile.
type Kind string

const (
	KindImage  Kind = "image"
	KindResume Kind = "resume"
)

// ParseKind maps the path segment used by the delete route to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindImage, KindResume:
		return Kind(s), true
	}
	return "", false
}

// Prefix is the storage namespace for the kind.
func (k Kind) Prefix() string {
	if k == KindResume {
		return "resumes"
	}
	return "images"
}

// Path is the public retrieval route for the kind.
func (k Kind) Path() string {
	if k == KindResume {
		return profile.ResumePath
	}
	return profile.ImagePath
}

// accepts reports whether a declared or sniffed media type fits the kind.
func (k Kind) accepts(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	if k == KindResume {
		return mt == "application/pdf"
	}
	return strings.HasPrefix(mt, "image/")
}

func (k Kind) slot(p *profile.Profile) *profile.Asset {
	if k == KindResume {
		return &p.Resume
	}
	return &p.ProfileImage
}

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNotFound        = errors.New("asset not found")
)

// Limits caps upload sizes per kind, in bytes.
type Limits struct {
	Image  int64
	Resume int64
}

// DefaultLimits are 5 MiB for images and 10 MiB for resumes.
func DefaultLimits() Limits {
	return Limits{Image: 5 << 20, Resume: 10 << 20}
}

// For returns the cap for k.
func (l Limits) For(k Kind) int64 {
	if k == KindResume {
		return l.Resume
	}
	return l.Image
}

// UploadInput is one incoming file. Size is the declared length, or -1
// when the client did not send one.
type UploadInput struct {
	Kind        Kind
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult describes the asset now referenced by the profile.
type UploadResult struct {
	Reference  string
	StoredName string
	Asset      profile.Asset
}

// SweepResult reports a sweep over stored objects.
type SweepResult struct {
	Scanned int      `json:"scanned" yaml:"scanned"`
	Orphans []string `json:"orphans" yaml:"orphans"`
	Deleted int      `json:"deleted" yaml:"deleted"`
	Skipped int      `json:"skipped" yaml:"skipped"`
	DryRun  bool     `json:"dryRun" yaml:"dryRun"`
}
