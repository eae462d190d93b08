package profile

import "time"

// View is the outward-facing representation of the profile.
type View struct {
	Name              string      `json:"name"`
	Title             string      `json:"title"`
	Bio               string      `json:"bio"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone,omitempty"`
	Location          string      `json:"location,omitempty"`
	Summary           string      `json:"summary"`
	YearsOfExperience int         `json:"yearsOfExperience"`
	SocialLinks       SocialLinks `json:"socialLinks"`
	ProfileImage      string      `json:"profileImage"`
	Resume            string      `json:"resume"`
	ResumePages       int         `json:"resumePages,omitempty"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// SummaryView is the trimmed record used by page headers and footers.
type SummaryView struct {
	Name         string      `json:"name"`
	Title        string      `json:"title"`
	Email        string      `json:"email"`
	Location     string      `json:"location,omitempty"`
	SocialLinks  SocialLinks `json:"socialLinks"`
	ProfileImage string      `json:"profileImage"`
}

func toView(p Profile) View {
	return View{
		Name:              p.Name,
		Title:             p.Title,
		Bio:               p.Bio,
		Email:             p.Email,
		Phone:             p.Phone,
		Location:          p.Location,
		Summary:           p.Summary,
		YearsOfExperience: p.YearsOfExperience,
		SocialLinks:       p.SocialLinks,
		ProfileImage:      p.ProfileImage.Reference(ImagePath),
		Resume:            p.Resume.Reference(ResumePath),
		ResumePages:       p.Resume.Pages,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toSummary(p Profile) SummaryView {
	return SummaryView{
		Name:         p.Name,
		Title:        p.Title,
		Email:        p.Email,
		Location:     p.Location,
		SocialLinks:  p.SocialLinks,
		ProfileImage: p.ProfileImage.Reference(ImagePath),
	}
}
