package constants

// StageStatus is the canonical outcome label for a pipeline stage.
type StageStatus string

// Stable values (these exact strings appear in logs and result metadata).
const (
	StageOK       StageStatus = "OK"       // stage produced its full output
	StageDegraded StageStatus = "DEGRADED" // stage skipped or emptied; document continues
	StageFailed   StageStatus = "FAILED"   // terminal failure for the document
)
