package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator checks request bodies and catalog records. The slug caches
// track uniqueness within one catalog load and are not safe for
// concurrent use; the struct checks are.
type Validator struct {
	v                *validator.Validate
	journalSlugCache map[string]bool
	planSlugCache    map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, ok := parseAmount(fl.Field().String())
		return ok && !d.IsNegative()
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, ok := parseAmount(fl.Field().String())
		return ok && !d.IsZero()
	})

	return &Validator{
		v:                v,
		journalSlugCache: make(map[string]bool),
		planSlugCache:    make(map[string]bool),
	}
}

func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, d.Exponent() >= -2
}

// Struct validates s against its `validate` tags
func (v *Validator) Struct(s interface{}) []ValidationError {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}

	errors := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errors = append(errors, ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
			Value:   valueOf(fe),
		})
	}
	return errors
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid %s, must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "invalid email format"
	case "slug":
		return "slug must be kebab-case (lowercase letters, numbers, hyphens)"
	case "money":
		return fmt.Sprintf("%s must be a non-negative amount with at most 2 decimal places", field)
	case "amount":
		return fmt.Sprintf("%s must be a non-zero amount with at most 2 decimal places", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func valueOf(fe validator.FieldError) interface{} {
	if fe.Tag() == "required" {
		return nil
	}
	if s, ok := fe.Value().(string); ok && len(s) > 100 {
		return s[:100] + "..."
	}
	return fe.Value()
}

// ValidateDraft validates the metadata of a new submission
func (v *Validator) ValidateDraft(draft *models.SubmissionDraft) []ValidationError {
	errors := v.Struct(draft)
	if strings.TrimSpace(draft.Title) == "" && draft.Title != "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	}
	return errors
}

// ValidatePatch validates a partial submission update
func (v *Validator) ValidatePatch(patch *models.SubmissionPatch) []ValidationError {
	errors := v.Struct(patch)
	if patch.IsEmpty() {
		errors = append(errors, ValidationError{Field: "body", Message: "no fields to update"})
	}
	if patch.Status != nil && !patch.Status.Valid() {
		errors = append(errors, ValidationError{Field: "status", Message: "unknown status", Value: string(*patch.Status)})
	}
	return errors
}

// SetJournalSlugCache seeds the slugs that already exist
func (v *Validator) SetJournalSlugCache(slugs []string) {
	for _, s := range slugs {
		v.journalSlugCache[s] = true
	}
}

// AddJournalSlug adds a slug to the uniqueness cache
func (v *Validator) AddJournalSlug(slug string) {
	v.journalSlugCache[slug] = true
}

// SetPlanSlugCache seeds the plan slugs that already exist
func (v *Validator) SetPlanSlugCache(slugs []string) {
	for _, s := range slugs {
		v.planSlugCache[s] = true
	}
}

// AddPlanSlug adds a plan slug to the uniqueness cache
func (v *Validator) AddPlanSlug(slug string) {
	v.planSlugCache[slug] = true
}

// ValidateJournal validates a journal catalog record
func (v *Validator) ValidateJournal(j *models.JournalNDJSON, lineNum int) []ValidationError {
	errors := v.Struct(j)

	if j.Slug != "" && v.journalSlugCache[j.Slug] {
		errors = append(errors, ValidationError{Field: "slug", Message: "duplicate slug", Value: j.Slug})
	}
	if j.IsPaid {
		price, ok := parseAmount(j.PricePerPage)
		if !ok || !price.IsPositive() {
			errors = append(errors, ValidationError{Field: "price_per_page", Message: "paid journals need a positive price_per_page", Value: j.PricePerPage})
		}
	}
	return errors
}

// ValidatePlan validates a subscription plan catalog record
func (v *Validator) ValidatePlan(p *models.PlanNDJSON, lineNum int) []ValidationError {
	errors := v.Struct(p)

	if p.Slug != "" && v.planSlugCache[p.Slug] {
		errors = append(errors, ValidationError{Field: "slug", Message: "duplicate slug", Value: p.Slug})
	}
	return errors
}

// IsValidSlug reports whether s is kebab-case
func IsValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// ParseMoney parses an amount with at most two decimal places
func ParseMoney(s string) (decimal.Decimal, error) {
	d, ok := parseAmount(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
