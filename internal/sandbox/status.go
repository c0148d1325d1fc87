package sandbox

// Stage is a step of the sandbox lifecycle.
type Stage int

const (
	StageIdle Stage = iota
	StageBooting
	StageTransforming
	StageMounting
	StageInstalling
	StageStarting
	StageReadyIdle
	StageReady
	StageFailed
)

// TotalSteps is the number of progress steps in a full setup.
const TotalSteps = 4

var stageNames = map[Stage]string{
	StageIdle:         "idle",
	StageBooting:      "booting",
	StageTransforming: "transforming",
	StageMounting:     "mounting",
	StageInstalling:   "installing",
	StageStarting:     "starting",
	StageReadyIdle:    "ready-idle",
	StageReady:        "ready",
	StageFailed:       "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Status is a snapshot of a controller.
type Status struct {
	Stage Stage

	// Step is the current progress step, 0..TotalSteps
	Step int

	// ServerURL and Port come from the latest server-ready event
	ServerURL string
	Port      int

	// Reused is set when an existing sandbox was reattached
	Reused bool

	// Err is the failure message when Stage is StageFailed
	Err string
}

// Ready reports whether a server is known to be listening.
func (s Status) Ready() bool {
	return s.Stage == StageReady
}

// Busy reports whether setup is still running.
func (s Status) Busy() bool {
	switch s.Stage {
	case StageBooting, StageTransforming, StageMounting, StageInstalling, StageStarting:
		return true
	}
	return false
}
