package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbrosius/hass-bookstack-exporter/internal/bookstack"
	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
)

// ShelfLister lists the shelves visible to the configured token.
type ShelfLister interface {
	GetShelves(ctx context.Context) ([]bookstack.Shelf, error)
}

// ConnectionTestRequest carries credentials to verify. Fields left empty
// fall back to the server configuration, so an empty body tests the
// configured instance.
type ConnectionTestRequest struct {
	BaseURL             string `json:"base_url"`
	TokenID             string `json:"token_id"`
	TokenSecret         string `json:"token_secret"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	NestedChapterCreate *bool  `json:"nested_chapter_create"`
}

// ConnectionTestResponse reports the outcome of a connection test. Error is
// one of "auth_failed", "timeout" or "connection_failed" when Success is
// false.
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ConnectionController verifies BookStack reachability and credentials.
type ConnectionController struct {
	cfg    *config.Config
	lister ShelfLister

	// newTester builds a throwaway client for the supplied credentials.
	// Overridable in tests.
	newTester func(bookstack.Config) connectionTester
}

type connectionTester interface {
	TestConnection(ctx context.Context) error
}

func NewConnectionController(cfg *config.Config, lister ShelfLister) *ConnectionController {
	return &ConnectionController{
		cfg:    cfg,
		lister: lister,
		newTester: func(bc bookstack.Config) connectionTester {
			return bookstack.NewClient(bc)
		},
	}
}

// Test checks that the BookStack instance is reachable and the token pair is
// accepted. Credential fields missing from the request are taken from the
// server configuration.
func (cc *ConnectionController) Test(c *gin.Context) {
	var req ConnectionTestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	bc := bookstack.Config{
		BaseURL:             req.BaseURL,
		TokenID:             req.TokenID,
		TokenSecret:         req.TokenSecret,
		MinRequestInterval:  cc.cfg.BookStack.MinRequestInterval,
		NestedChapterCreate: cc.cfg.BookStack.NestedChapterCreate,
	}
	if bc.BaseURL == "" {
		bc.BaseURL = cc.cfg.BookStack.BaseURL
	}
	if bc.TokenID == "" {
		bc.TokenID = cc.cfg.BookStack.TokenID
	}
	if bc.TokenSecret == "" {
		bc.TokenSecret = cc.cfg.BookStack.TokenSecret
	}
	if req.NestedChapterCreate != nil {
		bc.NestedChapterCreate = *req.NestedChapterCreate
	}

	timeoutSeconds := req.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = cc.cfg.BookStack.TimeoutSeconds
	}
	if err := config.ValidateTimeoutSeconds(timeoutSeconds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bc.Timeout = time.Duration(timeoutSeconds) * time.Second

	if bc.BaseURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_url is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), bc.Timeout)
	defer cancel()

	if err := cc.newTester(bc).TestConnection(ctx); err != nil {
		c.JSON(http.StatusOK, ConnectionTestResponse{
			Success: false,
			Error:   classifyConnectionError(err),
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ConnectionTestResponse{
		Success: true,
		Message: "connection successful",
	})
}

// Shelves lists the shelves visible to the configured token.
func (cc *ConnectionController) Shelves(c *gin.Context) {
	if cc.lister == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "BookStack client is not configured"})
		return
	}

	shelves, err := cc.lister.GetShelves(c.Request.Context())
	if err != nil {
		if bookstack.IsAuthError(err) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "BookStack rejected the configured token"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list shelves: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shelves": shelves,
		"total":   len(shelves),
	})
}

func classifyConnectionError(err error) string {
	if bookstack.IsAuthError(err) {
		return "auth_failed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "connection_failed"
}
