// Package access holds the authorization rules of the API as pure functions.
// Nothing here touches storage: callers resolve the actor and, for
// author-owned objects, the author id, then ask Allowed.
package access

// Actor is whoever is making the request.
type Actor struct {
	UserID    string
	Username  string
	Role      Role
	Superuser bool
}

// Anonymous is the actor of a request without credentials.
var Anonymous = Actor{}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != "" && a.Role.AtLeast(User)
}

// IsAdmin is true for the admin role and for superuser accounts.
func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && (a.Role == Admin || a.Superuser)
}

func (a Actor) IsModerator() bool {
	return a.IsAuthenticated() && a.Role == Moderator
}

// EffectiveRole folds the superuser flag into the role.
func (a Actor) EffectiveRole() Role {
	if !a.IsAuthenticated() {
		return Guest
	}
	if a.Superuser {
		return Admin
	}
	return a.Role
}

type Action int

const (
	Read Action = iota
	Create
	Update
	Delete
)

// Safe reports whether the action never mutates state.
func (a Action) Safe() bool {
	return a == Read
}

type Kind int

const (
	Category Kind = iota
	Genre
	Title
	Review
	Comment
	Account // arbitrary user records
	Profile // the actor's own record
	Signup
)

// Resource describes the target of an action. AuthorID is only meaningful
// for Review and Comment objects and is empty for collection-level checks.
type Resource struct {
	Kind     Kind
	AuthorID string
}

func On(kind Kind) Resource {
	return Resource{Kind: kind}
}

func Authored(kind Kind, authorID string) Resource {
	return Resource{Kind: kind, AuthorID: authorID}
}

// Allowed decides whether actor may perform act on res.
func Allowed(actor Actor, act Action, res Resource) bool {
	switch res.Kind {
	case Category, Genre, Title:
		return act.Safe() || actor.IsAdmin()
	case Review, Comment:
		return allowedOnContent(actor, act, res.AuthorID)
	case Account:
		return actor.IsAdmin()
	case Profile:
		return actor.IsAuthenticated()
	case Signup:
		return !actor.IsAuthenticated()
	}
	return false
}

func allowedOnContent(actor Actor, act Action, authorID string) bool {
	if act.Safe() {
		return true
	}
	if !actor.IsAuthenticated() {
		return false
	}
	if act == Create {
		return true
	}
	return actor.IsAdmin() || actor.IsModerator() || (authorID != "" && actor.UserID == authorID)
}

// CanChangeRole reports whether actor may assign roles. Self-profile updates
// from anyone else must drop the role field.
func CanChangeRole(actor Actor) bool {
	return actor.IsAdmin()
}
