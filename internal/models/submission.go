package models

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Submission represents a manuscript tracked through the editorial lifecycle
type Submission struct {
	ID              int64      `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Abstract        string     `json:"abstract" db:"abstract"`
	Keywords        string     `json:"keywords" db:"keywords"`
	AuthorID        int64      `json:"author" db:"author_id"`
	AuthorName      string     `json:"author_name,omitempty" db:"-"`
	JournalID       int64      `json:"journal" db:"journal_id"`
	JournalName     string     `json:"journal_name,omitempty" db:"-"`
	JournalSlug     string     `json:"journal_slug,omitempty" db:"-"`
	ManuscriptFile  string     `json:"manuscript_file,omitempty" db:"manuscript_file"`
	PageCount       int        `json:"page_count" db:"page_count"`
	Language        string     `json:"language" db:"language"`
	RejectionReason string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Status          Status     `json:"status" db:"status"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of the submission.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	cp := *s
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		cp.SubmittedAt = &t
	}
	return &cp
}

// KeywordList splits the comma separated keywords.
func (s *Submission) KeywordList() []string {
	if strings.TrimSpace(s.Keywords) == "" {
		return nil
	}
	parts := strings.Split(s.Keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SubmissionDraft carries the author supplied metadata for a new submission.
type SubmissionDraft struct {
	Title     string `json:"title" form:"title" validate:"required,max=500"`
	Abstract  string `json:"abstract" form:"abstract" validate:"required"`
	Keywords  string `json:"keywords" form:"keywords" validate:"max=500"`
	JournalID int64  `json:"journal" form:"journal" validate:"required,gt=0"`
	PageCount int    `json:"page_count" form:"page_count" validate:"gte=0,lte=2000"`
	Language  string `json:"language" form:"language" validate:"omitempty,oneof=en uz ru"`
	// SaveAsDraft keeps the record in DRAFT even when a manuscript is attached.
	SaveAsDraft bool `json:"save_as_draft,omitempty" form:"save_as_draft"`
}

// SubmissionPatch is a partial update. Nil fields are left untouched.
type SubmissionPatch struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Abstract        *string `json:"abstract,omitempty" validate:"omitempty,min=1"`
	Keywords        *string `json:"keywords,omitempty" validate:"omitempty,max=500"`
	Status          *Status `json:"status,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

// HasMetadata reports whether the patch touches author editable fields.
func (p SubmissionPatch) HasMetadata() bool {
	return p.Title != nil || p.Abstract != nil || p.Keywords != nil
}

// IsEmpty reports whether the patch changes nothing.
func (p SubmissionPatch) IsEmpty() bool {
	return !p.HasMetadata() && p.Status == nil && p.RejectionReason == nil
}

// Apply copies the non-nil fields of p onto s.
func (p SubmissionPatch) Apply(s *Submission) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Abstract != nil {
		s.Abstract = *p.Abstract
	}
	if p.Keywords != nil {
		s.Keywords = *p.Keywords
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.RejectionReason != nil {
		s.RejectionReason = *p.RejectionReason
	}
}

// SubmissionFilter holds list query options
type SubmissionFilter struct {
	Status     Status `form:"status"`
	JournalID  int64  `form:"journal"`
	AuthorID   int64  `form:"author"`
	AuthorName string `form:"author_name"`
	Language   string `form:"language"`
	Search     string `form:"search"`
}

// Query encodes the filter as URL query parameters.
func (f SubmissionFilter) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.JournalID > 0 {
		q.Set("journal", strconv.FormatInt(f.JournalID, 10))
	}
	if f.AuthorID > 0 {
		q.Set("author", strconv.FormatInt(f.AuthorID, 10))
	}
	if f.AuthorName != "" {
		q.Set("author_name", f.AuthorName)
	}
	if f.Language != "" {
		q.Set("language", f.Language)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// StatusChange records a single committed transition
type StatusChange struct {
	ID           int64     `json:"id" db:"id"`
	SubmissionID int64     `json:"submission" db:"submission_id"`
	FromStatus   Status    `json:"from_status" db:"from_status"`
	ToStatus     Status    `json:"to_status" db:"to_status"`
	ChangedBy    int64     `json:"changed_by" db:"changed_by"`
	Reason       string    `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Languages lists the supported manuscript and certificate languages.
var Languages = []string{"en", "uz", "ru"}

// DefaultLanguage is used when a submission does not specify one.
const DefaultLanguage = "en"
