package lifecycle

import "github.com/journal-submission-api/internal/models"

// Actor identifies who requests an operation.
type Actor struct {
	UserID int64
	Role   models.Role
}

// Anonymous reports whether the actor is not signed in.
func (a Actor) Anonymous() bool {
	return a.UserID == 0
}

// IsStaff reports whether the actor is an editor or admin.
func (a Actor) IsStaff() bool {
	return !a.Anonymous() && a.Role.IsStaff()
}

// IsAdmin reports whether the actor is an admin.
func (a Actor) IsAdmin() bool {
	return !a.Anonymous() && a.Role == models.RoleAdmin
}

// Owns reports whether the actor authored sub.
func (a Actor) Owns(sub *models.Submission) bool {
	return !a.Anonymous() && sub != nil && sub.AuthorID == a.UserID
}

// Session is the explicit request context handed to the lifecycle instead
// of process-wide globals.
type Session struct {
	Actor  Actor
	Locale string
}

// ActorFromUser derives an Actor from a user record.
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Role: u.Role}
}
