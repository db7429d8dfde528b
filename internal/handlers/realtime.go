package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/realtime"
	"github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into WebSocket streams.
type RealtimeHandler struct {
	hub            *realtime.Hub
	allowedStreams map[string]struct{}
}

// NewRealtimeHandler constructs a realtime handler restricted to the named streams.
// With no streams, the default notification and motivation streams are exposed.
func NewRealtimeHandler(hub *realtime.Hub, streams ...string) *RealtimeHandler {
	if len(streams) == 0 {
		streams = realtime.DefaultStreams
	}
	allowed := make(map[string]struct{}, len(streams))
	for _, stream := range streams {
		if stream = normalizeStream(stream); stream != "" {
			allowed[stream] = struct{}{}
		}
	}
	return &RealtimeHandler{hub: hub, allowedStreams: allowed}
}

// Stream subscribes the caller to the requested streams. It must run behind the auth
// middleware, which accepts the access token as a query parameter on upgrades.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	streams := gatherStreams(c)
	if len(streams) == 0 {
		streams = realtime.DefaultStreams
	}
	for _, stream := range streams {
		if _, ok := h.allowedStreams[stream]; !ok {
			response.Error(c, errors.NewBadRequest("unknown stream "+stream))
			return
		}
	}

	h.hub.Serve(userID, streams, h.allowedStreams, c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	var streams []string
	for _, queryStream := range c.QueryArray("stream") {
		streams = append(streams, normalizeStream(queryStream))
	}
	if raw := c.Query("streams"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			streams = append(streams, normalizeStream(part))
		}
	}
	return uniqueStreams(streams)
}

func normalizeStream(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func uniqueStreams(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
