package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
)

// RedirectWithFlash is the one-stop failure/success path of this surface:
// every handler outcome becomes a one-shot message plus a redirect to a
// safe page.
func RedirectWithFlash(ctx *gin.Context, status int, level, message, location string) {
	middlewares.SetFlash(ctx, level, message)
	ctx.Redirect(status, location)
}

func RespondInternal(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "internal_error",
			"message": message,
		},
	})
}

// BindForm binds a form-encoded body. On validation failure the user gets
// a flash describing the first broken field and lands back on redirectTo.
func BindForm(ctx *gin.Context, out interface{}, redirectTo string) bool {
	err := ctx.ShouldBind(out)

	if err != nil {
		RedirectWithFlash(ctx, http.StatusSeeOther, middlewares.FlashError, formErrorMessage(err), redirectTo)
		return false
	}

	return true
}

func formErrorMessage(err error) string {
	var validatorErrors validator.ValidationErrors

	if errors.As(err, &validatorErrors) && len(validatorErrors) > 0 {
		fieldError := validatorErrors[0]
		return strings.ToLower(fieldError.Field()) + " " + validationMessage(fieldError.Tag(), fieldError.Param())
	}

	return "Invalid form input."
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
