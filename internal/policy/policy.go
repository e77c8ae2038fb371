// Package policy decides who may list, create, edit, delete, or moderate an
// itinerary, and what status results. It performs no I/O.
package policy

import (
	"errors"
	"strings"

	"triptales/catalog-service/internal/models"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
)

// Error is a denial carrying a caller-facing reason. It unwraps to one of
// the package sentinels.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func deny(kind error, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

// Actor is the caller. The zero value is anonymous.
type Actor struct {
	UserID string
	Role   string
}

func ActorFor(user models.User) Actor {
	return Actor{UserID: user.UserID, Role: user.Role}
}

func (a Actor) Authenticated() bool { return a.UserID != "" }

func (a Actor) IsAdmin() bool { return a.Authenticated() && a.Role == models.RoleAdmin }

type Operation int

const (
	OpList Operation = iota
	OpCreate
	OpUpdate
	OpDelete
	OpTransition
)

func (o Operation) String() string {
	switch o {
	case OpList:
		return "list"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpTransition:
		return "transition"
	default:
		return "unknown"
	}
}

// Request describes one attempted operation. Resource is the current row
// for update and delete; Budget applies to create and update.
type Request struct {
	Op           Operation
	Resource     *models.Itinerary
	BudgetMin    int
	BudgetMax    int
	TargetStatus string
	List         ListQuery
}

// Effect is what an allowed request does: the status to persist, or the
// visibility scope of a listing.
type Effect struct {
	Status string
	Scope  ListScope
}

// Authorize evaluates req for actor. It must run before any mutation.
func Authorize(actor Actor, req Request) (Effect, error) {
	switch req.Op {
	case OpList:
		scope, err := ResolveListScope(actor, req.List)
		if err != nil {
			return Effect{}, err
		}
		return Effect{Scope: scope}, nil
	case OpCreate:
		if !actor.Authenticated() {
			return Effect{}, deny(ErrUnauthenticated, "Login required")
		}
		if err := CheckBudget(req.BudgetMin, req.BudgetMax); err != nil {
			return Effect{}, err
		}
		return Effect{Status: models.StatusPending}, nil
	case OpUpdate:
		if !actor.Authenticated() {
			return Effect{}, deny(ErrUnauthenticated, "Login required")
		}
		if err := CheckBudget(req.BudgetMin, req.BudgetMax); err != nil {
			return Effect{}, err
		}
		if req.Resource == nil {
			return Effect{}, deny(ErrInvalidInput, "itinerary is required")
		}
		if !canModify(actor, *req.Resource) {
			return Effect{}, deny(ErrForbidden, "You can only edit your own itineraries")
		}
		if actor.IsAdmin() {
			return Effect{Status: req.Resource.Status}, nil
		}
		return Effect{Status: models.StatusPending}, nil
	case OpDelete:
		if !actor.Authenticated() {
			return Effect{}, deny(ErrUnauthenticated, "Login required")
		}
		if req.Resource == nil {
			return Effect{}, deny(ErrInvalidInput, "itinerary is required")
		}
		if !canModify(actor, *req.Resource) {
			return Effect{}, deny(ErrForbidden, "You can only delete your own itineraries")
		}
		return Effect{}, nil
	case OpTransition:
		if !actor.Authenticated() {
			return Effect{}, deny(ErrUnauthenticated, "Login required")
		}
		if !actor.IsAdmin() {
			return Effect{}, deny(ErrForbidden, "Admin only")
		}
		status, ok := NormalizeStatus(req.TargetStatus)
		if !ok {
			return Effect{}, deny(ErrInvalidInput, "status must be approved, rejected, or pending")
		}
		if req.Resource != nil && !ValidTransition(req.Resource.Status, status) {
			return Effect{}, deny(ErrInvalidInput, "invalid status transition")
		}
		return Effect{Status: status}, nil
	default:
		return Effect{}, deny(ErrInvalidInput, "unknown operation")
	}
}

// CheckBudget enforces budget_max >= budget_min.
func CheckBudget(minBudget, maxBudget int) error {
	if maxBudget < minBudget {
		return deny(ErrInvalidInput, "budget_max must be >= budget_min")
	}
	return nil
}

func canModify(actor Actor, it models.Itinerary) bool {
	return actor.IsAdmin() || it.CreatedBy == actor.UserID
}

// NormalizeStatus trims and lowercases raw and reports whether it names a
// known status.
func NormalizeStatus(raw string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
		return status, true
	}
	return status, false
}
