package runtime

// Stage is a step of the invocation pipeline. An invocation only moves
// forward: Received, PermissionChecked, Validated, Translated, Delegated,
// then Completed or Failed.
type Stage int

const (
	StageReceived Stage = iota
	StagePermissionChecked
	StageValidated
	StageTranslated
	StageDelegated
	StageCompleted
	StageFailed
)

var stageNames = [...]string{
	StageReceived:          "received",
	StagePermissionChecked: "permission_checked",
	StageValidated:         "validated",
	StageTranslated:        "translated",
	StageDelegated:         "delegated",
	StageCompleted:         "completed",
	StageFailed:            "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
