package domain

import "go.uber.org/zap"

// Action names a lifecycle operation on an existing offer.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionExpire   Action = "expire"
	ActionDelete   Action = "delete"
)

// Role is the relationship an account holds with an offer.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// actorRule reads "the caller must (or must not) hold role".
type actorRule struct {
	role    Role
	mustNot bool
}

type transitionRule struct {
	from  OfferStatus
	actor actorRule
}

var transitionRules = map[Action]transitionRule{
	ActionAccept:   {from: StatusListing, actor: actorRule{role: RoleSeller, mustNot: true}},
	ActionComplete: {from: StatusPending, actor: actorRule{role: RoleBuyer}},
	ActionCancel:   {from: StatusPending, actor: actorRule{role: RoleBuyer}},
	ActionExpire:   {from: StatusPending, actor: actorRule{role: RoleSeller}},
	ActionDelete:   {from: StatusListing, actor: actorRule{role: RoleSeller}},
}

// Holds reports whether caller plays role on the offer.
func (o *Offer) Holds(role Role, caller string) bool {
	if caller == "" {
		return false
	}
	switch role {
	case RoleSeller:
		return o.SellerAccount == caller
	case RoleBuyer:
		return o.BuyerAccount == caller
	}
	return false
}

// Authorize checks the status precondition of action first and the actor
// predicate second, so a wrong status is reported whoever the caller is.
func (o *Offer) Authorize(action Action, caller string) error {
	rule, ok := transitionRules[action]
	if !ok {
		return ErrInvalidState
	}
	if o.Status != rule.from {
		log.Warn("Offer transition rejected: wrong status",
			zap.String("offerID", o.OfferID),
			zap.String("action", string(action)),
			zap.String("status", string(o.Status)),
			zap.String("caller", caller),
		)
		return ErrInvalidState
	}
	if caller == "" || o.Holds(rule.actor.role, caller) == rule.actor.mustNot {
		log.Warn("Offer transition rejected: caller not allowed",
			zap.String("offerID", o.OfferID),
			zap.String("action", string(action)),
			zap.String("role", string(rule.actor.role)),
			zap.Bool("mustNot", rule.actor.mustNot),
			zap.String("caller", caller),
		)
		return ErrForbidden
	}
	return nil
}
