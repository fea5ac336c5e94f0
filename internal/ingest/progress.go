package ingest

// AddStep names one phase of the add-feed state machine.
type AddStep string

const (
	StepFetching   AddStep = "fetching"
	StepCreating   AddStep = "creating"
	StepImporting  AddStep = "importing"
	StepFinalizing AddStep = "finalizing"
	StepCompleted  AddStep = "completed"
	StepError      AddStep = "error"
)

// AddProgress is one ephemeral status update for an in-flight add-feed
// operation. The terminal event (Completed or Error) is always last.
type AddProgress struct {
	Step     AddStep `json:"step"`
	Message  string  `json:"message"`
	Progress int     `json:"progress"`
}

// AddProgressFunc receives add-feed progress events in emission order.
type AddProgressFunc func(AddProgress)

// RefreshStep names one phase of a bulk refresh.
type RefreshStep string

const (
	RefreshStarting  RefreshStep = "starting"
	RefreshUpdating  RefreshStep = "updating"
	RefreshCompleted RefreshStep = "completed"
	RefreshError     RefreshStep = "error"
)

// RefreshProgress is one status update for an in-flight bulk refresh,
// carrying current/total feed counters alongside the percentage.
type RefreshProgress struct {
	Step     RefreshStep `json:"step"`
	Message  string      `json:"message"`
	Progress int         `json:"progress"`
	Current  int         `json:"current"`
	Total    int         `json:"total"`
}

// RefreshProgressFunc receives bulk refresh progress events in emission order.
type RefreshProgressFunc func(RefreshProgress)
