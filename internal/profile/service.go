package profile

import (
	"context"
	"errors"
	"strings"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/validate"
)

// ValidationError carries itemized field failures for a profile save.
type ValidationError struct {
	Fields []respond.FieldError
}

func (e *ValidationError) Error() string { return "profile validation failed" }

// Input is the editable identity portion of the profile.
type Input struct {
	Name              string      `json:"name" validate:"required,min=2,max=50"`
	Title             string      `json:"title" validate:"required,min=5,max=100"`
	Bio               string      `json:"bio" validate:"required,min=50,max=500"`
	Email             string      `json:"email" validate:"required,email"`
	Phone             string      `json:"phone" validate:"omitempty,phone"`
	Location          string      `json:"location" validate:"max=100"`
	Summary           string      `json:"summary" validate:"required,min=100,max=1000"`
	YearsOfExperience *int        `json:"yearsOfExperience" validate:"required,min=0,max=50"`
	SocialLinks       SocialInput `json:"socialLinks"`
}

// SocialInput mirrors SocialLinks with URL validation.
type SocialInput struct {
	GitHub    string `json:"github" validate:"omitempty,url"`
	LinkedIn  string `json:"linkedin" validate:"omitempty,url"`
	Twitter   string `json:"twitter" validate:"omitempty,url"`
	Portfolio string `json:"portfolio" validate:"omitempty,url"`
	Instagram string `json:"instagram" validate:"omitempty,url"`
}

var inputMessages = validate.Messages{
	"name.required":         "Name is required",
	"name":                  "Name must be between 2 and 50 characters",
	"title.required":        "Title is required",
	"title":                 "Title must be between 5 and 100 characters",
	"bio.required":          "Bio is required",
	"bio":                   "Bio must be between 50 and 500 characters",
	"email":                 "Please provide a valid email",
	"phone":                 "Please provide a valid phone number",
	"location":              "Location must be less than 100 characters",
	"summary.required":      "Summary is required",
	"summary":               "Summary must be between 100 and 1000 characters",
	"yearsOfExperience":     "Years of experience must be a valid number between 0 and 50",
	"socialLinks.github":    "GitHub URL must be valid",
	"socialLinks.linkedin":  "LinkedIn URL must be valid",
	"socialLinks.twitter":   "Twitter URL must be valid",
	"socialLinks.portfolio": "Portfolio URL must be valid",
	"socialLinks.instagram": "Instagram URL must be valid",
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Title = strings.TrimSpace(in.Title)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Location = strings.TrimSpace(in.Location)
	in.Summary = strings.TrimSpace(in.Summary)
	in.SocialLinks.GitHub = strings.TrimSpace(in.SocialLinks.GitHub)
	in.SocialLinks.LinkedIn = strings.TrimSpace(in.SocialLinks.LinkedIn)
	in.SocialLinks.Twitter = strings.TrimSpace(in.SocialLinks.Twitter)
	in.SocialLinks.Portfolio = strings.TrimSpace(in.SocialLinks.Portfolio)
	in.SocialLinks.Instagram = strings.TrimSpace(in.SocialLinks.Instagram)
}

// Service exposes profile reads and the admin save.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Get returns the owner's profile or ErrNotFound before the first save or upload.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profile service not configured")
	}
	return s.Repo.Get(ctx, DefaultID)
}

// Save validates in and writes the identity fields, leaving asset
// references untouched. created reports whether the record was new.
func (s *Service) Save(ctx context.Context, in Input) (p Profile, created bool, err error) {
	if s == nil || s.Repo == nil {
		return Profile{}, false, errors.New("profile service not configured")
	}
	in.normalize()
	if fields := validate.Struct(in, inputMessages); fields != nil {
		return Profile{}, false, &ValidationError{Fields: fields}
	}

	p, err = s.Repo.Update(ctx, DefaultID, func(p *Profile) error {
		created = p.CreatedAt.IsZero()
		p.Name = in.Name
		p.Title = in.Title
		p.Bio = in.Bio
		p.Email = in.Email
		p.Phone = in.Phone
		p.Location = in.Location
		p.Summary = in.Summary
		p.YearsOfExperience = *in.YearsOfExperience
		p.SocialLinks = SocialLinks(in.SocialLinks)
		return nil
	})
	if err != nil {
		return Profile{}, false, err
	}
	return p, created, nil
}
