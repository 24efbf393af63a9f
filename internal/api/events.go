package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danielolaszy/attractor/internal/notify"
)

// handleEvents streams session events as server-sent events until the client
// goes away. A "ready" event is sent once the subscription is live.
func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "event stream is not configured"})
		return
	}

	events, err := s.events.Subscribe(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("ready", gin.H{"topic": notify.Topic})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(event.Name, event.Data)
		return true
	})
}
