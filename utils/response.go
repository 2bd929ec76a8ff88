// utils/response.go
package utils

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondWithError writes {"error": message} and aborts the chain
func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondWithBindError turns a binding failure into a 400. Validator
// failures are reported per field.
func RespondWithBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   lowerFirst(fe.Field()),
				Message: validationMessage(fe),
			})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}
	RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "clock":
		return "must be a time in HH:MM format"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Page holds skip/limit pagination parameters
type Page struct {
	Skip  int
	Limit int
}

// GetPage reads skip and limit query parameters, clamping the limit
func GetPage(c *gin.Context, defaultLimit int) Page {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Skip: skip, Limit: limit}
}

// Paginated wraps a page of items with its position in the full result
func Paginated(items interface{}, total int64, page Page) gin.H {
	return gin.H{
		"items": items,
		"total": total,
		"skip":  page.Skip,
		"limit": page.Limit,
		"page":  page.Skip/page.Limit + 1,
		"pages": (total + int64(page.Limit) - 1) / int64(page.Limit),
	}
}

// QueryBool parses an optional boolean query parameter
func QueryBool(c *gin.Context, key string) (bool, bool) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
