package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Status is the liveness payload.
type Status struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Service encapsulates health-related checks.
type Service struct {
	now func() time.Time
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{now: func() time.Time { return time.Now().UTC() }}
}

// Status reports that the process is serving. Storage is not consulted.
func (s *Service) Status() Status {
	return Status{Status: "OK", Message: "Server is running", Timestamp: s.now()}
}

// RegisterRoutes attaches GET /health.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})
}
