package models

// Stage identifies a phase of an analysis run.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageLocateKB  Stage = "locate_kb"
	StageLoadKB    Stage = "load_kb"
	StageParse     Stage = "parse"
	StageClassify  Stage = "classify"
	StageCorrelate Stage = "correlate"
	StageReport    Stage = "report"
	StageDone      Stage = "done"
)

// ProgressEvent is a structured stage-progress notification emitted
// between pipeline stages. Percent is the fraction of the whole run,
// 0-100.
type ProgressEvent struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressSink receives progress events. Implementations must be safe
// for use from a single analysis goroutine; the pipeline never calls
// Progress concurrently within one run.
type ProgressSink interface {
	Progress(ev ProgressEvent)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(ev ProgressEvent)

// Progress implements ProgressSink.
func (f ProgressFunc) Progress(ev ProgressEvent) { f(ev) }

// NopSink discards all progress events.
type NopSink struct{}

// Progress implements ProgressSink.
func (NopSink) Progress(ProgressEvent) {}
