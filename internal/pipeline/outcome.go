package pipeline

import "github.com/formpipe/formpipe/constants"

// Outcome is a stage's tagged result. The orchestrator branches on the
// status tag; exceptions never drive normal-path control flow.
type Outcome struct {
	Stage  string
	Status constants.StageStatus
	Err    error
}

func stageOK(stage string) Outcome {
	return Outcome{Stage: stage, Status: constants.StageOK}
}

func stageDegraded(stage string, err error) Outcome {
	return Outcome{Stage: stage, Status: constants.StageDegraded, Err: err}
}

func stageFailed(stage string, err error) Outcome {
	return Outcome{Stage: stage, Status: constants.StageFailed, Err: err}
}

// Fatal reports whether the outcome ends the document.
func (o Outcome) Fatal() bool {
	return o.Status == constants.StageFailed
}
