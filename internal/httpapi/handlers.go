package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/selection"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EvaluateRequest carries the selection to evaluate.
type EvaluateRequest struct {
	Selected []string `json:"selected"`
}

// ApplyRequest asks for one decision on top of a selection.
type ApplyRequest struct {
	Selected []string `json:"selected"`
	Code     string   `json:"code" binding:"required"`
	Select   bool     `json:"select"`
}

// ApplyResponse is the next selection plus its evaluation.
type ApplyResponse struct {
	selection.Outcome
	Selected   []string             `json:"selected"`
	Evaluation selection.Evaluation `json:"evaluation"`
}

// CoursesResponse lists the catalog.
type CoursesResponse struct {
	Courses []catalog.Course `json:"courses"`
	Limit   int              `json:"limit"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "courses": s.catalog.Len()})
}

func (s *Server) listCourses(c *gin.Context) {
	c.JSON(http.StatusOK, CoursesResponse{
		Courses: s.catalog.Courses(),
		Limit:   s.evaluator.Evaluate(selection.State{}).Limit,
	})
}

func (s *Server) getCourse(c *gin.Context) {
	course, ok := s.catalog.Lookup(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "course not found"})
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.evaluator.Evaluate(selection.NewState(req.Selected...)))
}

func (s *Server) apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	next, outcome := s.evaluator.Apply(selection.NewState(req.Selected...), req.Code, req.Select)
	selected := next.Selected()
	if selected == nil {
		selected = []string{}
	}
	c.JSON(http.StatusOK, ApplyResponse{
		Outcome:    outcome,
		Selected:   selected,
		Evaluation: s.evaluator.Evaluate(next),
	})
}
