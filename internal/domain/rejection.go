package domain

// Stage names the pipeline stage that produced a rejection.
type Stage string

const (
	StageConsensus Stage = "consensus"
	StageGuardian  Stage = "guardian"
	StageSizing    Stage = "sizing"
	StagePipeline  Stage = "pipeline"
)

// RejectReason is the machine-readable cause of a skip.
type RejectReason string

const (
	RejectNoQuorum           RejectReason = "no_quorum"
	RejectLowConfidence      RejectReason = "low_confidence"
	RejectBelowThreshold     RejectReason = "below_threshold"
	RejectTie                RejectReason = "tie"
	RejectHalted             RejectReason = "halted"
	RejectLiveConflict       RejectReason = "live_conflict"
	RejectConflictUnknown    RejectReason = "conflict_check_failed"
	RejectDuplicatePosition  RejectReason = "duplicate_position"
	RejectExposureLimit      RejectReason = "exposure_limit"
	RejectDirectionalCeiling RejectReason = "directional_ceiling"
	RejectNoEdge             RejectReason = "no_edge"
	RejectEpochEnded         RejectReason = "epoch_ended"
	RejectSuperseded         RejectReason = "superseded"
	RejectPersistence        RejectReason = "persistence_failure"
	RejectExecution          RejectReason = "execution_failure"
)

// Rejection records why a tick produced no trade. Every rejection is
// audited; none is an error condition by itself.
type Rejection struct {
	Stage  Stage
	Reason RejectReason
	Detail string
}

// NewRejection builds a rejection for the given stage and reason.
func NewRejection(stage Stage, reason RejectReason, detail string) *Rejection {
	return &Rejection{Stage: stage, Reason: reason, Detail: detail}
}
