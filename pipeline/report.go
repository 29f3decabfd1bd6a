package pipeline

// Kind identifies a report. The Reporter does not interpret kinds;
// aggregators ignore kinds they do not know.
type Kind string

// Kinds emitted by the pipeline itself.
const (
	KindListed    Kind = "listed"
	KindProcessed Kind = "processed"
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
)

// Kinds a ProcessFunc emits to say what it did with an item.
const (
	KindUpdated Kind = "updated"
	KindSkipped Kind = "skipped"
	KindNoop    Kind = "noop"
)

// Report is one event on the report queue.
type Report struct {
	Kind    Kind
	Payload any
}

// Failure is the payload of a KindFailed report.
type Failure struct {
	Item any
	Key  string
	Err  error
}

// Emitter sends reports to the run's Reporter.
type Emitter interface {
	Report(kind Kind, payload any)
}
