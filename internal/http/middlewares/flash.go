package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const flashCookieName = "tc_flash"

const (
	FlashError   = "error"
	FlashSuccess = "success"
)

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SetFlash stores a one-shot message for the next rendered page. Gin
// query-escapes cookie values, so the message may contain anything.
func SetFlash(c *gin.Context, level, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, level+"|"+message, 60, "/", "", false, true)
}

// TakeFlash returns the pending flash, if any, and clears it.
func TakeFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookieName)

	if err != nil || raw == "" {
		return nil
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, "", -1, "/", "", false, true)

	level, message, found := strings.Cut(raw, "|")

	if !found {
		return &Flash{Level: FlashError, Message: raw}
	}

	return &Flash{Level: level, Message: message}
}
