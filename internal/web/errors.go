package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sari-go/internal/inventory"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrDuplicate), errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict
	case inventory.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the user for err. dupMsg replaces the
// generic duplicate message when the page has a more specific one.
func messageFor(err error, dupMsg string) string {
	var ve *inventory.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, inventory.ErrDuplicate):
		if dupMsg != "" {
			return dupMsg
		}
		return "That name is already taken."
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "Not enough stock for that purchase."
	case errors.Is(err, inventory.ErrNotFound):
		return "Not found."
	default:
		return "Something went wrong. Please try again."
	}
}

type rerenderFunc func(c *gin.Context, status int, message string)

// formError answers a failed form submission. Problems the user can fix
// re-render the form with a message; everything else gets the error page.
func (h *handlers) formError(c *gin.Context, err error, dupMsg string, rerender rerenderFunc) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest, http.StatusConflict:
		h.logger.Warn("form rejected", "path", c.Request.URL.Path, "status", status, "error", err)
		rerender(c, status, messageFor(err, dupMsg))
	default:
		h.fail(c, err)
	}
}

// fail renders the error page for err.
func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	h.errorPage(c, status, messageFor(err, ""))
}

func (h *handlers) errorPage(c *gin.Context, status int, message string) {
	c.HTML(status, "error", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}
