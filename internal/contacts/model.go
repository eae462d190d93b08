package contacts

import "time"

// Status is the lifecycle state of a contact submission.
type Status string

const (
	StatusNew     Status = "new"
	StatusRead    Status = "read"
	StatusReplied Status = "replied"
	StatusClosed  Status = "closed"
)

// Priority is the admin-assigned triage level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	DefaultProjectType = "other"
	DefaultCurrency    = "INR"
	DefaultTimeline    = "flexible"

	// MaxBudget is the largest accepted budget value.
	MaxBudget = 100000000
)

var (
	ProjectTypes = []string{"web-development", "mobile-app", "consultation", "freelance", "full-time", "other"}
	Currencies   = []string{"INR", "USD", "EUR", "GBP", "AUD", "CAD", "JPY", "CNY", "CHF", "SGD"}
	Timelines    = []string{"asap", "1-month", "2-3-months", "3-6-months", "6-months+", "flexible"}
	Statuses     = []Status{StatusNew, StatusRead, StatusReplied, StatusClosed}
	Priorities   = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
)

// Contact is one persisted inquiry. Reply is only ever set together with RepliedAt.
type Contact struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Email       string     `json:"email" yaml:"email"`
	Subject     string     `json:"subject" yaml:"subject"`
	Message     string     `json:"message" yaml:"message"`
	Phone       string     `json:"phone" yaml:"phone"`
	Company     string     `json:"company" yaml:"company"`
	ProjectType string     `json:"projectType" yaml:"projectType"`
	Budget      *float64   `json:"budget,omitempty" yaml:"budget,omitempty"`
	Currency    string     `json:"currency" yaml:"currency"`
	Timeline    string     `json:"timeline" yaml:"timeline"`
	Status      Status     `json:"status" yaml:"status"`
	IsRead      bool       `json:"isRead" yaml:"isRead"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	Reply       string     `json:"reply" yaml:"reply"`
	RepliedAt   *time.Time `json:"repliedAt,omitempty" yaml:"repliedAt,omitempty"`
	Notes       string     `json:"notes" yaml:"notes"`
	IPAddress   string     `json:"ipAddress" yaml:"ipAddress"`
	UserAgent   string     `json:"userAgent" yaml:"userAgent"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Receipt is returned to the submitter.
type Receipt struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Sort orders accepted by List.
const (
	SortCreatedAt = "createdAt"
	SortName      = "name"
	SortPriority  = "priority"
)

// Filter selects and orders a page of contacts.
type Filter struct {
	Status   Status
	Priority Priority
	SortBy   string
	Offset   int
	Limit    int
}

// Pagination describes one page of a list.
type Pagination struct {
	Current       int `json:"current" yaml:"current"`
	Total         int `json:"total" yaml:"total"`
	Count         int `json:"count" yaml:"count"`
	TotalContacts int `json:"totalContacts" yaml:"totalContacts"`
}

// Page is a list result.
type Page struct {
	Items      []Contact  `json:"items" yaml:"items"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}

// Count is one bucket of a grouped count.
type Count struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// MonthCount is the number of submissions received in one calendar month.
type MonthCount struct {
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month" yaml:"month"`
	Count int `json:"count" yaml:"count"`
}

// Stats aggregates the whole collection. Empty data yields empty slices.
type Stats struct {
	StatusCounts      []Count      `json:"statusCounts" yaml:"statusCounts"`
	PriorityCounts    []Count      `json:"priorityCounts" yaml:"priorityCounts"`
	ProjectTypeCounts []Count      `json:"projectTypeCounts" yaml:"projectTypeCounts"`
	MonthlyStats      []MonthCount `json:"monthlyStats" yaml:"monthlyStats"`
}

// StatsMonths is how many of the most recent months MonthlyStats keeps.
const StatsMonths = 12

func priorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

var transitions = map[Status][]Status{
	StatusNew:     {StatusRead, StatusClosed},
	StatusRead:    {StatusReplied, StatusClosed},
	StatusReplied: {StatusClosed},
}

// CanTransition reports whether a contact may move from one status to another.
// Staying in place is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
