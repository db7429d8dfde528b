package realtime

// Streams a client may subscribe to.
const (
	StreamNotifications = "notifications"
	StreamMotivation    = "motivation"
)

// DefaultStreams are subscribed when a client does not name any.
var DefaultStreams = []string{StreamNotifications, StreamMotivation}

// Allowed returns the set of streams exposed to clients.
func Allowed() map[string]struct{} {
	allowed := make(map[string]struct{}, len(DefaultStreams))
	for _, stream := range DefaultStreams {
		allowed[stream] = struct{}{}
	}
	return allowed
}
