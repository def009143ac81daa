package domain

// StageStatus represents the outcome of a single stage within a run
type StageStatus string

const (
	StageStatusSkipped   StageStatus = "skipped"
	StageStatusRunning   StageStatus = "running"
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed    StageStatus = "failed"
)

// RunStatus represents the execution state of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// ConfigSource tells where a run configuration came from
type ConfigSource string

const (
	SourceFresh       ConfigSource = "fresh"
	SourceGivenPath   ConfigSource = "given_path"
	SourceDefaultPath ConfigSource = "default_path"
)
