package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/coa-classifier/internal/domain/classification"
	"github.com/coa-classifier/internal/domain/ledger"
	"github.com/coa-classifier/internal/engine"
)

// ValidationServiceImpl implements the ValidationService interface
type ValidationServiceImpl struct {
	rowRepo          ledger.Repository
	ruleRepo         classification.Repository
	engineCfg        engine.Config
	parallelFamilies int
	summaryThreshold int
	logger           *slog.Logger
}

// NewValidationService creates a new validation service. parallelFamilies
// bounds the number of families validated concurrently per request.
func NewValidationService(
	logger *slog.Logger,
	rowRepo ledger.Repository,
	ruleRepo classification.Repository,
	engineCfg engine.Config,
	parallelFamilies int,
	summaryThreshold int,
) ValidationService {
	if parallelFamilies <= 0 {
		parallelFamilies = 1
	}
	return &ValidationServiceImpl{
		rowRepo:          rowRepo,
		ruleRepo:         ruleRepo,
		engineCfg:        engineCfg,
		parallelFamilies: parallelFamilies,
		summaryThreshold: summaryThreshold,
		logger:           logger,
	}
}

// ValidatePeriod runs the full validation pipeline for one reporting period:
// load rows, merge the rule catalogue, group families, then validate,
// reconcile and recommend per family.
func (s *ValidationServiceImpl) ValidatePeriod(ctx context.Context, period string) (*ValidationReport, error) {
	rows, families, err := s.loadFamilies(ctx, period)
	if err != nil {
		return nil, err
	}

	results, err := s.validateFamilies(ctx, families)
	if err != nil {
		return nil, err
	}

	reconciler := engine.NewReconciler(s.logger)
	findings := reconciler.ReconcileAll(families)

	var recommendations []engine.Recommendation
	for _, key := range sortedFamilyKeys(families) {
		recommendations = append(recommendations, engine.Recommend(families[key], s.summaryThreshold))
	}

	s.logger.Info("Validation run completed",
		"period", period,
		"families", len(families),
		"rows", len(rows),
		"results_with_issues", len(results),
		"variance_findings", len(findings),
	)

	return &ValidationReport{
		Period:           period,
		FamilyCount:      len(families),
		RowCount:         len(rows),
		Results:          results,
		VarianceFindings: findings,
		Recommendations:  recommendations,
	}, nil
}

// RecommendFamily returns the recommendation for a single family, or nil if
// the period holds no rows for it
func (s *ValidationServiceImpl) RecommendFamily(ctx context.Context, period, familyKey string) (*engine.Recommendation, error) {
	_, families, err := s.loadFamilies(ctx, period)
	if err != nil {
		return nil, err
	}

	family, ok := families[familyKey]
	if !ok {
		s.logger.Info("Family not found in period", "period", period, "family_key", familyKey)
		return nil, nil
	}

	rec := engine.Recommend(family, s.summaryThreshold)
	return &rec, nil
}

// GetPeriods lists the reporting periods available for validation
func (s *ValidationServiceImpl) GetPeriods(ctx context.Context) ([]string, error) {
	return s.rowRepo.GetPeriods(ctx)
}

// loadFamilies fetches one period's rows, merges the active catalogue into
// them, and groups the result into families
func (s *ValidationServiceImpl) loadFamilies(ctx context.Context, period string) ([]ledger.Row, map[string]*engine.Family, error) {
	rows, err := s.rowRepo.GetByPeriod(ctx, period)
	if err != nil {
		return nil, nil, err
	}

	rules, err := s.ruleRepo.GetActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load classification rule catalogue", "error", err)
		return nil, nil, err
	}

	catalogue := classification.NewCatalogue(rules)
	merged := catalogue.Apply(rows)

	s.logger.Debug("Catalogue merged into period rows",
		"period", period,
		"rows", len(merged),
		"active_rules", catalogue.Len(),
	)

	return merged, engine.GroupFamilies(s.logger, merged), nil
}

// validateFamilies runs consistency validation across families on a bounded
// worker pool. Results are re-sorted after the fan-in so the output order is
// independent of goroutine scheduling.
func (s *ValidationServiceImpl) validateFamilies(ctx context.Context, families map[string]*engine.Family) ([]*engine.FamilyValidationResult, error) {
	validator := engine.NewValidator(s.logger, s.engineCfg)

	pool, err := ants.NewPool(s.parallelFamilies)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  []*engine.FamilyValidationResult
		firstErr error
	)

	for _, key := range sortedFamilyKeys(families) {
		family := families[key]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			result, vErr := validator.ValidateFamily(family)
			mu.Lock()
			defer mu.Unlock()
			if vErr != nil {
				if firstErr == nil {
					firstErr = vErr
				}
				return
			}
			if result != nil {
				results = append(results, result)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to submit family validation task: %w", submitErr)
			}
			mu.Unlock()
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine.SortResults(results)
	return results, nil
}

func sortedFamilyKeys(families map[string]*engine.Family) []string {
	keys := make([]string, 0, len(families))
	for key := range families {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
