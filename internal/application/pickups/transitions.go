package pickups

import (
	"time"

	"foodbridge-backend/internal/domain"

	"github.com/google/uuid"
)

const (
	ActionCreate          = "create"
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionMarkReady       = "markReady"
	ActionMarkPickedUp    = "markPickedUp"
	ActionConfirmReceived = "confirmReceived"
	ActionCancel          = "cancel"
)

type ledgerEffect int

const (
	effectNone ledgerEffect = iota
	effectRelease
	effectComplete
)

type party int

const (
	partyDonor party = 1 << iota
	partyRequester
)

type rule struct {
	from    []domain.PickupStatus
	to      domain.PickupStatus
	effect  ledgerEffect
	parties party
	stamp   func(r *domain.PickupRequest, at time.Time)
}

var transitions = map[string]rule{
	ActionApprove: {
		from:    []domain.PickupStatus{domain.PickupStatusPending},
		to:      domain.PickupStatusApproved,
		parties: partyDonor,
		stamp:   func(r *domain.PickupRequest, at time.Time) { r.ApprovedAt = &at },
	},
	ActionReject: {
		from:    []domain.PickupStatus{domain.PickupStatusPending},
		to:      domain.PickupStatusRejected,
		effect:  effectRelease,
		parties: partyDonor,
		stamp:   func(r *domain.PickupRequest, at time.Time) { r.RejectedAt = &at },
	},
	ActionMarkReady: {
		from:    []domain.PickupStatus{domain.PickupStatusApproved},
		to:      domain.PickupStatusReady,
		parties: partyDonor,
		stamp:   func(r *domain.PickupRequest, at time.Time) { r.MarkedReadyAt = &at },
	},
	ActionMarkPickedUp: {
		from:    []domain.PickupStatus{domain.PickupStatusReady},
		to:      domain.PickupStatusPickedUp,
		parties: partyDonor | partyRequester,
		stamp:   func(r *domain.PickupRequest, at time.Time) { r.MarkedPickedUpAt = &at },
	},
	ActionConfirmReceived: {
		from:    []domain.PickupStatus{domain.PickupStatusPickedUp},
		to:      domain.PickupStatusCompleted,
		effect:  effectComplete,
		parties: partyRequester,
		stamp:   func(r *domain.PickupRequest, at time.Time) { r.ConfirmedReceivedAt = &at },
	},
	ActionCancel: {
		from:    []domain.PickupStatus{domain.PickupStatusPending, domain.PickupStatusApproved, domain.PickupStatusReady},
		to:      domain.PickupStatusCancelled,
		effect:  effectRelease,
		parties: partyDonor | partyRequester,
		stamp:   func(r *domain.PickupRequest, at time.Time) { r.CancelledAt = &at },
	},
}

// IsAction reports whether action names a lifecycle transition.
func IsAction(action string) bool {
	_, ok := transitions[action]
	return ok
}

func (r rule) allows(status domain.PickupStatus) bool {
	for _, s := range r.from {
		if s == status {
			return true
		}
	}
	return false
}

// authorize checks the acting organization is a party allowed to run the action.
// A nil actor org skips the check (internal callers).
func (r rule) authorize(req *domain.PickupRequest, actorOrgID uuid.UUID) error {
	if actorOrgID == uuid.Nil {
		return nil
	}
	if r.parties&partyDonor != 0 && actorOrgID == req.GroceryOrgID {
		return nil
	}
	if r.parties&partyRequester != 0 && actorOrgID == req.RequesterOrgID {
		return nil
	}
	return domain.ErrForbiddenActor
}

// alreadyApplied is true when req is exactly where a previous run of action left it.
func (r rule) alreadyApplied(req *domain.PickupRequest, action string) bool {
	return req.Status == r.to && req.LastAction == action
}
