package hub

// EventKind names something the sync did or declined to do.
type EventKind string

const (
	EventPropagated     EventKind = "propagated"
	EventEchoSuppressed EventKind = "echo_suppressed"
	EventUnknownColor   EventKind = "unknown_color"
	EventManual         EventKind = "manual"
	EventCycleError     EventKind = "cycle_error"
)

// Event describes one sync decision. Hub is the side that made it.
type Event struct {
	Kind       EventKind
	Hub        string
	Target     string
	On         bool
	Hex        string
	Hue        int
	Saturation int
	Brightness int
	Command    string
	Err        error
}

// Recorder receives sync events.
type Recorder interface {
	Record(Event)
}

// NopRecorder discards events.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(Event) {}
