package events

// Event represents a structured state change emitted by the vault core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (loggers, indexers,
// webhook bridges). Implementations must not call back into the component
// that emitted the event.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding every event. Components use
// it as the default so emitting never requires a nil check.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
