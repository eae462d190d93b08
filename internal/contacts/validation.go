package contacts

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/validate"
)

// Submission is the public contact form payload.
type Submission struct {
	Name        string          `json:"name" validate:"required,min=2,max=50,alphaspace"`
	Email       string          `json:"email" validate:"required,email"`
	Subject     string          `json:"subject" validate:"required,min=5,max=100"`
	Message     string          `json:"message" validate:"required,min=20,max=1000"`
	Phone       string          `json:"phone" validate:"omitempty,phone"`
	Company     string          `json:"company" validate:"max=100"`
	ProjectType string          `json:"projectType" validate:"omitempty,oneof=web-development mobile-app consultation freelance full-time other"`
	Budget      json.RawMessage `json:"budget" validate:"-"`
	Currency    string          `json:"currency" validate:"omitempty,oneof=INR USD EUR GBP AUD CAD JPY CNY CHF SGD"`
	Timeline    string          `json:"timeline" validate:"omitempty,oneof=asap 1-month 2-3-months 3-6-months 6-months+ flexible"`
}

var submissionMessages = validate.Messages{
	"name.required":    "Name is required",
	"name.alphaspace":  "Name can only contain letters and spaces",
	"name":             "Name must be between 2 and 50 characters",
	"email":            "Please provide a valid email address",
	"subject.required": "Subject is required",
	"subject":          "Subject must be between 5 and 100 characters",
	"message.required": "Message is required",
	"message":          "Message must be between 20 and 1000 characters",
	"phone":            "Please provide a valid phone number",
	"company":          "Company name must be less than 100 characters",
	"projectType":      "Invalid project type",
	"currency":         "Invalid currency code",
	"timeline":         "Invalid timeline",
}

func (s *Submission) normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Subject = strings.TrimSpace(s.Subject)
	s.Message = strings.TrimSpace(s.Message)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Company = strings.TrimSpace(s.Company)
	s.ProjectType = strings.TrimSpace(s.ProjectType)
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	s.Timeline = strings.TrimSpace(s.Timeline)
}

// check normalizes s and returns the parsed budget, or the itemized failures.
func (s *Submission) check() (*float64, []respond.FieldError) {
	s.normalize()
	fields := validate.Struct(*s, submissionMessages)
	budget, msg := ParseBudget(s.Budget)
	if msg != "" {
		fields = append(fields, respond.FieldError{Field: "budget", Message: msg})
	}
	return budget, fields
}

// ParseBudget accepts a JSON number or numeric string. Absent, null and ""
// mean not provided. A non-empty msg describes why raw was rejected.
func ParseBudget(raw json.RawMessage) (value *float64, msg string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ""
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, "Budget must be a valid number"
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ""
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return nil, "Budget must be a valid number"
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, "Budget must be a valid number"
	}
	switch {
	case v < 0:
		return nil, "Budget cannot be negative"
	case v > MaxBudget:
		return nil, "Budget value is too large"
	}
	return &v, ""
}

// UpdateInput is a partial admin update. Empty Status or Priority leaves the
// field alone; a non-nil Notes or Reply replaces it.
type UpdateInput struct {
	Status   Status   `json:"status" validate:"omitempty,oneof=new read replied closed"`
	Priority Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Notes    *string  `json:"notes" validate:"omitempty,max=1000"`
	Reply    *string  `json:"reply" validate:"omitempty,max=2000"`
}

var updateMessages = validate.Messages{
	"status":   "Invalid status",
	"priority": "Invalid priority",
	"notes":    "Notes must be less than 1000 characters",
	"reply":    "Reply must be less than 2000 characters",
}

func (in *UpdateInput) normalize() {
	in.Status = Status(strings.TrimSpace(string(in.Status)))
	in.Priority = Priority(strings.TrimSpace(string(in.Priority)))
	if in.Notes != nil {
		v := strings.TrimSpace(*in.Notes)
		in.Notes = &v
	}
	if in.Reply != nil {
		v := strings.TrimSpace(*in.Reply)
		in.Reply = &v
	}
}

func validateUpdate(in UpdateInput) []respond.FieldError {
	return validate.Struct(in, updateMessages)
}

// ListOptions are the admin list query parameters.
type ListOptions struct {
	Status   string
	Priority string
	SortBy   string
	Page     int
	Limit    int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (o ListOptions) filter() (Filter, []respond.FieldError) {
	var fields []respond.FieldError
	f := Filter{
		Status:   Status(strings.TrimSpace(o.Status)),
		Priority: Priority(strings.TrimSpace(o.Priority)),
		Limit:    o.Limit,
	}
	if f.Status != "" && !slices.Contains(Statuses, f.Status) {
		fields = append(fields, respond.FieldError{Field: "status", Message: "Invalid status"})
	}
	if f.Priority != "" && !slices.Contains(Priorities, f.Priority) {
		fields = append(fields, respond.FieldError{Field: "priority", Message: "Invalid priority"})
	}
	switch o.SortBy {
	case SortName, SortPriority:
		f.SortBy = o.SortBy
	default:
		f.SortBy = SortCreatedAt
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	page := o.Page
	if page < 1 {
		page = 1
	}
	// Keep offset+limit inside int.
	if maxPage := math.MaxInt/f.Limit - 1; page > maxPage {
		page = maxPage
	}
	f.Offset = (page - 1) * f.Limit
	return f, fields
}
