package validation

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/journal-submission-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidateDraft(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		draft      *models.SubmissionDraft
		wantFields []string
	}{
		{
			name:  "valid draft",
			draft: &models.SubmissionDraft{Title: "Soil", Abstract: "Text", JournalID: 1, PageCount: 5, Language: "en"},
		},
		{
			name:       "missing title and journal",
			draft:      &models.SubmissionDraft{Abstract: "Text"},
			wantFields: []string{"title", "journal"},
		},
		{
			name:       "unsupported language",
			draft:      &models.SubmissionDraft{Title: "Soil", Abstract: "Text", JournalID: 1, Language: "de"},
			wantFields: []string{"language"},
		},
		{
			name:       "negative page count",
			draft:      &models.SubmissionDraft{Title: "Soil", Abstract: "Text", JournalID: 1, PageCount: -2},
			wantFields: []string{"page_count"},
		},
		{
			name:       "blank title",
			draft:      &models.SubmissionDraft{Title: "   ", Abstract: "Text", JournalID: 1},
			wantFields: []string{"title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := validator.ValidateDraft(tt.draft)
			if len(errors) != len(tt.wantFields) {
				t.Fatalf("Expected %d errors, got %d: %v", len(tt.wantFields), len(errors), errors)
			}
			for i, field := range tt.wantFields {
				if errors[i].Field != field {
					t.Errorf("Expected error on field '%s', got '%s'", field, errors[i].Field)
				}
			}
		})
	}
}

func TestValidatePatch(t *testing.T) {
	validator := NewValidator()

	if errors := validator.ValidatePatch(&models.SubmissionPatch{Title: strPtr("New")}); len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	errors := validator.ValidatePatch(&models.SubmissionPatch{})
	if len(errors) != 1 || errors[0].Field != "body" {
		t.Errorf("Expected empty patch error, got %v", errors)
	}

	errors = validator.ValidatePatch(&models.SubmissionPatch{Title: strPtr("")})
	if len(errors) != 1 || errors[0].Field != "title" {
		t.Errorf("Expected title error, got %v", errors)
	}

	bad := models.Status("ARCHIVED")
	errors = validator.ValidatePatch(&models.SubmissionPatch{Status: &bad})
	if len(errors) != 1 || errors[0].Field != "status" {
		t.Errorf("Expected status error, got %v", errors)
	}
}

func TestValidateRegistration(t *testing.T) {
	validator := NewValidator()

	req := &models.RegisterRequest{Username: "ab", Email: "nope", Password: "short"}
	errors := validator.Struct(req)
	fields := map[string]bool{}
	for _, e := range errors {
		fields[e.Field] = true
		if e.Message == "" {
			t.Errorf("Error on %s should have a message", e.Field)
		}
	}
	for _, f := range []string{"username", "email", "password"} {
		if !fields[f] {
			t.Errorf("Expected error on %s, got %v", f, errors)
		}
	}
}

func TestMoneyAndAmountTags(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		amount string
		valid  bool
	}{
		{"10", true},
		{"10.50", true},
		{"-5.25", true},
		{"0", false},
		{"10.505", false},
		{"ten", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			req := &models.AdjustBalanceRequest{UserID: 1, Amount: tt.amount}
			errors := validator.Struct(req)
			if (len(errors) == 0) != tt.valid {
				t.Errorf("Amount %q: expected valid=%v, got errors %v", tt.amount, tt.valid, errors)
			}
		})
	}

	plan := &models.PlanNDJSON{Name: "Neg", Slug: "neg", Price: "-1"}
	errors := validator.ValidatePlan(plan, 1)
	if len(errors) != 1 || errors[0].Field != "price" {
		t.Errorf("Expected price error for negative plan price, got %v", errors)
	}
}

func TestKebabCaseValidation(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"valid-slug", true},
		{"a", true},
		{"123-numbers", true},
		{"Invalid-Slug", false},
		{"invalid_slug", false},
		{"-starts-with-dash", false},
		{"ends-with-dash-", false},
		{"double--dash", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if IsValidSlug(tt.slug) != tt.valid {
				t.Errorf("Slug '%s': expected valid=%v", tt.slug, tt.valid)
			}
		})
	}
}

func TestDuplicateJournalSlugDetection(t *testing.T) {
	validator := NewValidator()
	validator.SetJournalSlugCache([]string{"existing"})

	j := &models.JournalNDJSON{Slug: "existing", NameEN: "Existing", DescriptionEN: "x"}
	errors := validator.ValidateJournal(j, 1)
	if len(errors) != 1 || errors[0].Message != "duplicate slug" {
		t.Errorf("Expected 'duplicate slug' error, got %v", errors)
	}

	j2 := &models.JournalNDJSON{Slug: "fresh", NameEN: "Fresh", DescriptionEN: "x"}
	if errors := validator.ValidateJournal(j2, 2); len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}
	validator.AddJournalSlug("fresh")
	if errors := validator.ValidateJournal(j2, 3); len(errors) != 1 {
		t.Errorf("Expected duplicate after AddJournalSlug, got %v", errors)
	}
}

func TestPaidJournalNeedsPrice(t *testing.T) {
	validator := NewValidator()
	j := &models.JournalNDJSON{Slug: "paid", NameEN: "Paid", DescriptionEN: "x", IsPaid: true}
	errors := validator.ValidateJournal(j, 1)
	if len(errors) != 1 || errors[0].Field != "price_per_page" {
		t.Errorf("Expected price_per_page error, got %v", errors)
	}
}

func testdataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

func TestValidateJournal_CatalogFile(t *testing.T) {
	file, err := os.Open(testdataPath(t, "journals.ndjson"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	validator := NewValidator()
	scanner := bufio.NewScanner(file)
	line, valid := 0, 0
	var failures []string
	for scanner.Scan() {
		line++
		var j models.JournalNDJSON
		if err := json.Unmarshal(scanner.Bytes(), &j); err != nil {
			t.Fatalf("line %d: %v", line, err)
		}
		if errors := validator.ValidateJournal(&j, line); len(errors) > 0 {
			failures = append(failures, j.Slug+":"+errors[0].Field)
			continue
		}
		validator.AddJournalSlug(j.Slug)
		valid++
	}

	if valid != 3 {
		t.Errorf("Expected 3 valid journals, got %d (failures: %v)", valid, failures)
	}
	want := "Economics_Today:slug,applied-linguistics:slug,engineering-letters:price_per_page"
	if got := strings.Join(failures, ","); got != want {
		t.Errorf("Expected failures %s, got %s", want, got)
	}
}
