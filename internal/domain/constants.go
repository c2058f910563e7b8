package domain

// Priority tiers, in rank order (express jumps the queue).
const (
	TierStandard = "standard"
	TierPriority = "priority"
	TierExpress  = "express"
)

func ValidTier(tier string) bool {
	switch tier {
	case TierStandard, TierPriority, TierExpress:
		return true
	}
	return false
}

// Payment methods.
const (
	MethodCard          = "card"
	MethodTokenTransfer = "token-transfer"
)

func ValidMethod(method string) bool {
	return method == MethodCard || method == MethodTokenTransfer
}

// Payment statuses. PENDING is the only non-terminal state.
const (
	PaymentPending  = "PENDING"
	PaymentVerified = "VERIFIED"
	PaymentExpired  = "EXPIRED"
	PaymentFailed   = "FAILED"
)

// Work-item status labels, resolved with precedence completed > building > ready > failed.
const (
	LabelReady     = "ready"
	LabelBuilding  = "building"
	LabelCompleted = "completed"
	LabelFailed    = "failed"
)

// Tier labels carried by work items; standard-tier items carry none.
const (
	LabelPriorityExpress  = "priority:express"
	LabelPriorityPriority = "priority:priority"
)

// Queue entry statuses derived from labels.
const (
	StatusQueued    = "queued"
	StatusBuilding  = "building"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const RoleAdmin = "ADMIN"
