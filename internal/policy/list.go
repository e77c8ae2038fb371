package policy

import "triptales/catalog-service/internal/models"

type ListQuery struct {
	Query  string
	Region string
	Status string
	Mine   bool
}

// ListScope is the visibility restriction applied on top of the search
// terms. Empty fields do not restrict.
type ListScope struct {
	Status    string
	CreatedBy string
}

type listRule struct {
	name    string
	matches func(actor Actor, q ListQuery, status string) bool
	resolve func(actor Actor, q ListQuery, status string) (ListScope, error)
}

// listRules are evaluated in order; the first match decides.
var listRules = []listRule{
	{
		name:    "unknown status",
		matches: func(_ Actor, _ ListQuery, status string) bool { return status != "" && !isKnownStatus(status) },
		resolve: func(Actor, ListQuery, string) (ListScope, error) {
			return ListScope{}, deny(ErrInvalidInput, "status must be approved, rejected, or pending")
		},
	},
	{
		name:    "anonymous mine",
		matches: func(actor Actor, q ListQuery, _ string) bool { return q.Mine && !actor.Authenticated() },
		resolve: func(Actor, ListQuery, string) (ListScope, error) {
			return ListScope{}, deny(ErrUnauthenticated, "Login required for mine=true")
		},
	},
	{
		name: "non-approved status outside own items",
		matches: func(actor Actor, q ListQuery, status string) bool {
			return status != "" && status != models.StatusApproved && !actor.IsAdmin() && !q.Mine
		},
		resolve: func(Actor, ListQuery, string) (ListScope, error) {
			return ListScope{}, deny(ErrForbidden, "Only admin can query non-approved status")
		},
	},
	{
		name:    "explicit status",
		matches: func(_ Actor, _ ListQuery, status string) bool { return status != "" },
		resolve: func(actor Actor, q ListQuery, status string) (ListScope, error) {
			scope := ListScope{Status: status}
			if q.Mine {
				scope.CreatedBy = actor.UserID
			}
			return scope, nil
		},
	},
	{
		name:    "own items",
		matches: func(_ Actor, q ListQuery, _ string) bool { return q.Mine },
		resolve: func(actor Actor, _ ListQuery, _ string) (ListScope, error) {
			return ListScope{CreatedBy: actor.UserID}, nil
		},
	},
	{
		name:    "public catalog",
		matches: func(Actor, ListQuery, string) bool { return true },
		resolve: func(Actor, ListQuery, string) (ListScope, error) {
			return ListScope{Status: models.StatusApproved}, nil
		},
	},
}

// ResolveListScope computes which itineraries actor may see for q.
func ResolveListScope(actor Actor, q ListQuery) (ListScope, error) {
	status, _ := NormalizeStatus(q.Status)
	for _, rule := range listRules {
		if rule.matches(actor, q, status) {
			return rule.resolve(actor, q, status)
		}
	}
	return ListScope{Status: models.StatusApproved}, nil
}

func isKnownStatus(status string) bool {
	_, ok := transitionMap[status]
	return ok
}
