package lifecycle

import (
	"slices"
	"strings"

	"github.com/journal-submission-api/internal/models"
)

// Request describes a status change asked for by an actor.
type Request struct {
	To              models.Status
	RejectionReason string
	// Confirmed must be set for irreversible author actions (withdrawal).
	Confirmed bool
}

type rule struct {
	from      []models.Status
	to        models.Status
	roles     []models.Role
	ownerOnly bool
}

// Terminal states have no outgoing rules. There is no path back from
// REJECTED or WITHDRAWN.
var rules = []rule{
	{
		from:      []models.Status{models.StatusDraft},
		to:        models.StatusSubmitted,
		ownerOnly: true,
	},
	{
		from:  []models.Status{models.StatusSubmitted},
		to:    models.StatusUnderReview,
		roles: []models.Role{models.RoleEditor, models.RoleAdmin},
	},
	{
		from:  []models.Status{models.StatusSubmitted, models.StatusUnderReview},
		to:    models.StatusAccepted,
		roles: []models.Role{models.RoleEditor, models.RoleAdmin},
	},
	{
		from:  []models.Status{models.StatusSubmitted, models.StatusUnderReview},
		to:    models.StatusRejected,
		roles: []models.Role{models.RoleEditor, models.RoleAdmin},
	},
	{
		from:  []models.Status{models.StatusAccepted},
		to:    models.StatusPublished,
		roles: []models.Role{models.RoleAdmin},
	},
	{
		from:      []models.Status{models.StatusDraft, models.StatusSubmitted, models.StatusUnderReview},
		to:        models.StatusWithdrawn,
		ownerOnly: true,
	},
}

var editableStatuses = map[models.Status]struct{}{
	models.StatusDraft:     {},
	models.StatusSubmitted: {},
}

func (r rule) allowsFrom(s models.Status) bool {
	for _, from := range r.from {
		if from == s {
			return true
		}
	}
	return false
}

func (r rule) allowsActor(actor Actor, sub *models.Submission) bool {
	if r.ownerOnly {
		return actor.Owns(sub)
	}
	for _, role := range r.roles {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// roleCanReach reports whether some rule into `to` admits actor's role.
// Owner-only rules admit every role; ownership is checked per submission.
// A target no rule leads to is left to the state check.
func roleCanReach(actor Actor, to models.Status) bool {
	targeted := false
	for _, r := range rules {
		if r.to != to {
			continue
		}
		targeted = true
		if r.ownerOnly || slices.Contains(r.roles, actor.Role) {
			return true
		}
	}
	return !targeted
}

// CanTransition checks the state and role guards for moving sub to `to`.
// It does not check request payload requirements; see ValidateRequest.
func CanTransition(actor Actor, sub *models.Submission, to models.Status) error {
	if !to.Valid() {
		return Validation("unknown status %q", string(to))
	}
	if sub == nil {
		return NotFound("submission not found")
	}
	if actor.Anonymous() {
		return Unauthorized("authentication required")
	}

	if !roleCanReach(actor, to) {
		return Unauthorized("your role cannot move submissions to %s", to)
	}

	var matched *rule
	for i := range rules {
		if rules[i].to == to && rules[i].allowsFrom(sub.Status) {
			matched = &rules[i]
			break
		}
	}
	if matched == nil {
		return InvalidTransition("cannot change status from %s to %s", sub.Status, to)
	}
	if !matched.allowsActor(actor, sub) {
		if matched.ownerOnly {
			return Unauthorized("only the author can move this submission to %s", to)
		}
		return Unauthorized("your role cannot move submissions to %s", to)
	}
	return nil
}

// ValidateRequest runs CanTransition plus the payload requirements of the
// target state. A nil result means the request may be dispatched.
func ValidateRequest(actor Actor, sub *models.Submission, req Request) error {
	if err := CanTransition(actor, sub, req.To); err != nil {
		return err
	}
	switch req.To {
	case models.StatusRejected:
		if strings.TrimSpace(req.RejectionReason) == "" {
			return Validation("a rejection reason is required")
		}
	case models.StatusWithdrawn:
		if !req.Confirmed {
			return Validation("withdrawal cannot be undone and must be confirmed")
		}
	case models.StatusSubmitted:
		if strings.TrimSpace(sub.ManuscriptFile) == "" {
			return Validation("a manuscript file is required to submit")
		}
	}
	return nil
}

// AvailableTransitions lists the target states the actor may request for
// sub, in lifecycle order.
func AvailableTransitions(actor Actor, sub *models.Submission) []models.Status {
	var out []models.Status
	for _, to := range models.AllStatuses() {
		if CanTransition(actor, sub, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// IsMetadataEditable reports whether title, abstract and keywords may
// still change in status s.
func IsMetadataEditable(s models.Status) bool {
	_, ok := editableStatuses[s]
	return ok
}

// CanEditMetadata checks whether actor may edit the descriptive fields of sub.
func CanEditMetadata(actor Actor, sub *models.Submission) error {
	if sub == nil {
		return NotFound("submission not found")
	}
	if actor.Anonymous() {
		return Unauthorized("authentication required")
	}
	if !actor.Owns(sub) && !actor.IsStaff() {
		return Unauthorized("only the author can edit this submission")
	}
	if !IsMetadataEditable(sub.Status) {
		return InvalidTransition("submission is read-only in status %s", sub.Status)
	}
	return nil
}

// CanDelete checks whether actor may permanently delete submissions.
func CanDelete(actor Actor) error {
	if actor.Anonymous() {
		return Unauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return Unauthorized("only administrators can delete submissions")
	}
	return nil
}

// CanView reports whether actor may see sub. Published work is public.
func CanView(actor Actor, sub *models.Submission) bool {
	if sub == nil {
		return false
	}
	return IsPubliclyVisible(sub) || actor.IsStaff() || actor.Owns(sub)
}

// IsPubliclyVisible reports whether sub belongs in the public article listing.
func IsPubliclyVisible(sub *models.Submission) bool {
	return sub != nil && sub.Status == models.StatusPublished
}

// CertificateAvailable reports whether a publication certificate can be
// downloaded for sub.
func CertificateAvailable(sub *models.Submission) bool {
	return sub != nil && sub.Status == models.StatusPublished
}
