package service

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGlobal(eventType string, data any)
	BroadcastFaction(faction, eventType string, data any)
	BroadcastPlayers(playerIDs []string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGlobal(string, any)            {}
func (NoopBroadcaster) BroadcastFaction(string, string, any)   {}
func (NoopBroadcaster) BroadcastPlayers([]string, string, any) {}
