package engine

// EventKind tags an Event's variant.
type EventKind int

const (
	// EventPhase reports a voice's quantised phase position. Droppable.
	EventPhase EventKind = iota
	// EventBufferData carries the result of a completed CmdBufferRead.
	// Never dropped; see EventBufferReadRefused for the capacity case.
	EventBufferData
	// EventBufferReadRefused reports that a CmdBufferRead could not be
	// completed because no event-queue slot was available for its result.
	EventBufferReadRefused
)

// Event is a tagged variant emitted by the engine on the audio thread and
// consumed by the control thread.
type Event struct {
	Kind EventKind

	// EventPhase
	Voice     int
	PositionS float64

	// EventBufferData / EventBufferReadRefused
	RequestID   uint64
	BufferID    int
	StartSample int
	Samples     []float32
}
