// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Engine lifecycle
	RegionCreated   EventType = "REGION_CREATED"
	QubitRegistered EventType = "QUBIT_REGISTERED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"

	// Quantum state changes
	GateApplied        EventType = "GATE_APPLIED"
	ComponentsMerged   EventType = "COMPONENTS_MERGED"
	MeasurementTaken   EventType = "MEASUREMENT_TAKEN"
	EntanglementBroken EventType = "ENTANGLEMENT_BROKEN"
	ChannelInstalled   EventType = "CHANNEL_INSTALLED"
	ChannelRemoved     EventType = "CHANNEL_REMOVED"
	EvolutionPaused    EventType = "EVOLUTION_PAUSED"
	EvolutionResumed   EventType = "EVOLUTION_RESUMED"
	NumericDrift       EventType = "NUMERIC_DRIFT"

	// Terminal lifecycle
	TerminalBound    EventType = "TERMINAL_BOUND"
	TerminalMeasured EventType = "TERMINAL_MEASURED"
	TerminalPopped   EventType = "TERMINAL_POPPED"
	HarvestCompleted EventType = "HARVEST_COMPLETED"

	// Persistence
	SnapshotWritten  EventType = "SNAPSHOT_WRITTEN"
	SnapshotRestored EventType = "SNAPSHOT_RESTORED"
)
