package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys the request middleware stores on the gin context
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
)

// requestFields tags e with the request id, route and time spent so far
func requestFields(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if id := c.GetString(RequestIDKey); id != "" {
		e.Str("request_id", id)
	}
	if c.Request != nil {
		e.Str("method", c.Request.Method).Str("path", c.FullPath())
	}
	if started := c.GetTime(StartTimeKey); !started.IsZero() {
		e.Dur("elapsed", time.Since(started))
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return requestFields(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return requestFields(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return requestFields(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return requestFields(c, log.Error()) }
