package service

// PanelState is the lifecycle every data panel moves through.
type PanelState string

const (
	StateIdle    PanelState = "idle"
	StateLoading PanelState = "loading"
	StateReady   PanelState = "ready"
	StateEmpty   PanelState = "empty"
	StateFailed  PanelState = "failed"
)
