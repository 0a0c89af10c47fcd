package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxReportedErrors caps the validation errors kept in an import result.
const maxReportedErrors = 1000

// catalogService is the concrete implementation of CatalogService
type catalogService struct {
	repos     *repository.Repositories
	batchSize int
	log       zerolog.Logger
}

func newCatalogService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *catalogService {
	batch := cfg.Upload.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &catalogService{
		repos:     repos,
		batchSize: batch,
		log:       log.With().Str("service", "catalog").Logger(),
	}
}

// Journals lists all journals
func (s *catalogService) Journals(ctx context.Context) ([]*models.Journal, error) {
	journals, err := s.repos.Journal.List(ctx)
	if err != nil {
		return nil, err
	}
	if journals == nil {
		journals = []*models.Journal{}
	}
	return journals, nil
}

// Journal returns a journal by slug
func (s *catalogService) Journal(ctx context.Context, slug string) (*models.Journal, error) {
	j, err := s.repos.Journal.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, lifecycle.NotFound("Journal not found.")
	}
	return j, nil
}

// Import bulk loads journals or plans from NDJSON. Invalid lines are
// reported and skipped; valid ones are inserted in batches.
func (s *catalogService) Import(ctx context.Context, resource string, r io.Reader) (*models.CatalogImportResult, error) {
	if !models.ValidCatalogResources[resource] {
		return nil, lifecycle.Validation("unknown catalog resource %q", resource)
	}

	start := time.Now()
	result := &models.CatalogImportResult{Resource: resource}
	validator := validation.NewValidator()

	var flush func(final bool)
	var handle func(line []byte, lineNum int) []models.ValidationError

	switch resource {
	case models.CatalogJournals:
		slugs, err := s.repos.Journal.GetAllSlugs(ctx)
		if err != nil {
			return nil, err
		}
		validator.SetJournalSlugCache(slugs)

		var batch []*models.Journal
		handle = func(line []byte, lineNum int) []models.ValidationError {
			var rec models.JournalNDJSON
			if err := json.Unmarshal(line, &rec); err != nil {
				return []models.ValidationError{{Line: lineNum, Field: "json", Message: fmt.Sprintf("invalid JSON: %v", err)}}
			}
			if errs := validator.ValidateJournal(&rec, lineNum); len(errs) > 0 {
				return withLine(errs, lineNum)
			}
			validator.AddJournalSlug(rec.Slug)
			batch = append(batch, convertJournal(&rec))
			return nil
		}
		flush = func(final bool) {
			if len(batch) == 0 || (!final && len(batch) < s.batchSize) {
				return
			}
			inserted, err := s.repos.Journal.BatchInsert(ctx, batch)
			s.account(result, len(batch), inserted, err)
			batch = batch[:0]
		}

	case models.CatalogPlans:
		slugs, err := s.repos.Billing.GetAllPlanSlugs(ctx)
		if err != nil {
			return nil, err
		}
		validator.SetPlanSlugCache(slugs)

		var batch []*models.Plan
		handle = func(line []byte, lineNum int) []models.ValidationError {
			var rec models.PlanNDJSON
			if err := json.Unmarshal(line, &rec); err != nil {
				return []models.ValidationError{{Line: lineNum, Field: "json", Message: fmt.Sprintf("invalid JSON: %v", err)}}
			}
			if errs := validator.ValidatePlan(&rec, lineNum); len(errs) > 0 {
				return withLine(errs, lineNum)
			}
			validator.AddPlanSlug(rec.Slug)
			batch = append(batch, convertPlan(&rec))
			return nil
		}
		flush = func(final bool) {
			if len(batch) == 0 || (!final && len(batch) < s.batchSize) {
				return
			}
			inserted, err := s.repos.Billing.BatchInsertPlans(ctx, batch)
			s.account(result, len(batch), inserted, err)
			batch = batch[:0]
		}
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if strings.TrimSpace(string(line)) == "" {
			continue
		}
		result.Total++

		if lineNum%1000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		if errs := handle(line, lineNum); len(errs) > 0 {
			result.Failed++
			if len(result.Errors) < maxReportedErrors {
				result.Errors = append(result.Errors, errs...)
			}
			continue
		}
		flush(false)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	flush(true)

	result.DurationMs = time.Since(start).Milliseconds()
	s.log.Info().
		Str("resource", resource).
		Int("total", result.Total).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Int64("duration_ms", result.DurationMs).
		Msg("Catalog import completed")

	return result, nil
}

// account adds the outcome of one batch insert to result.
func (s *catalogService) account(result *models.CatalogImportResult, size, inserted int, err error) {
	if err != nil {
		s.log.Error().Err(err).Int("batch_size", size).Msg("Batch insert failed")
		result.Failed += size
		return
	}
	result.Inserted += inserted
	result.Failed += size - inserted
}

func withLine(errs []validation.ValidationError, lineNum int) []models.ValidationError {
	out := make([]models.ValidationError, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.ValidationError{Line: lineNum, Field: e.Field, Message: e.Message, Value: e.Value})
	}
	return out
}

func convertJournal(rec *models.JournalNDJSON) *models.Journal {
	price, _ := decimal.NewFromString(rec.PricePerPage)
	return &models.Journal{
		Slug:          rec.Slug,
		NameEN:        rec.NameEN,
		NameUZ:        rec.NameUZ,
		NameRU:        rec.NameRU,
		DescriptionEN: rec.DescriptionEN,
		DescriptionUZ: rec.DescriptionUZ,
		DescriptionRU: rec.DescriptionRU,
		IsPaid:        rec.IsPaid,
		PricePerPage:  price,
		CreatedAt:     time.Now(),
	}
}

func convertPlan(rec *models.PlanNDJSON) *models.Plan {
	price, _ := decimal.NewFromString(rec.Price)
	active := true
	if rec.IsActive != nil {
		active = *rec.IsActive
	}
	return &models.Plan{
		Name:         rec.Name,
		Slug:         rec.Slug,
		Price:        price,
		ArticleLimit: rec.ArticleLimit,
		Description:  rec.Description,
		IsActive:     active,
	}
}
