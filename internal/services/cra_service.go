package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCraNotFound          = apierrors.NewDomainError(apierrors.KindNotFound, "CRA not found")
	ErrNotCraCreator        = apierrors.NewDomainError(apierrors.KindPermissionDenied, "only the CRA creator can perform this action")
	ErrCraDuplicate         = apierrors.NewDomainError(apierrors.KindConflict, "a CRA already exists for this month")
	ErrCraNotDraft          = apierrors.NewDomainError(apierrors.KindConflict, "CRA is not in draft")
	ErrInvalidCraTransition = apierrors.NewDomainError(apierrors.KindConflict, "invalid CRA status transition")
	ErrCraEmpty             = apierrors.NewDomainError(apierrors.KindDomainValidation, "CRA must have at least one entry to be submitted")
	ErrInvalidCraMonth      = apierrors.NewDomainError(apierrors.KindDomainValidation, "month must be between 1 and 12")
	ErrInvalidCraYear       = apierrors.NewDomainError(apierrors.KindDomainValidation, fmt.Sprintf("year must be between %d and %d", constants.MinCraYear, constants.MaxCraYear))
	ErrInvalidCraStatus     = apierrors.NewDomainError(apierrors.KindDomainValidation, "unknown CRA status")
	ErrCraMonthWithoutYear  = apierrors.NewDomainError(apierrors.KindDomainValidation, "month filter requires year")
	ErrCraFilterNotNumeric  = apierrors.NewDomainError(apierrors.KindContractViolation, "year and month must be numeric")
	ErrCraDescriptionLength = apierrors.NewDomainError(apierrors.KindDomainValidation, fmt.Sprintf("description must be at most %d characters", constants.MaxCraDescriptionLength))
)

// CraService handles the CRA lifecycle
type CraService struct {
	craRepo repository.CraRepository
	log     logrus.FieldLogger
	metrics metrics.Sink
	now     func() time.Time
}

// NewCraService creates a new CraService
func NewCraService(craRepo repository.CraRepository, log logrus.FieldLogger, sink metrics.Sink) *CraService {
	return &CraService{
		craRepo: craRepo,
		log:     log,
		metrics: sink,
		now:     time.Now,
	}
}

// CreateCraInput represents input for creating a CRA
type CreateCraInput struct {
	ActorID     uint64
	Month       int
	Year        int
	Description string
	Currency    string
}

// UpdateCraInput represents a partial CRA update
type UpdateCraInput struct {
	Description *string
	Currency    *string
}

// ListCrasQuery carries the raw list filters as received from the client
type ListCrasQuery struct {
	ActorID  uint64
	Year     string
	Month    string
	Status   string
	Page     int
	PageSize int
}

// CreateCra creates a draft CRA for a month the actor has no CRA for yet
func (s *CraService) CreateCra(ctx context.Context, input CreateCraInput) (*models.Cra, error) {
	if err := validatePeriod(input.Year, input.Month); err != nil {
		return nil, err
	}
	if len([]rune(input.Description)) > constants.MaxCraDescriptionLength {
		return nil, ErrCraDescriptionLength
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	if _, err := s.craRepo.FindByPeriod(ctx, input.ActorID, input.Year, input.Month); err == nil {
		return nil, apierrors.Wrap(ErrCraDuplicate, "%04d-%02d", input.Year, input.Month)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing CRA: %w", err)
	}

	cra := &models.Cra{
		Month:           input.Month,
		Year:            input.Year,
		Status:          models.CraStatusDraft,
		Description:     input.Description,
		Currency:        currency,
		CreatedByUserID: input.ActorID,
	}
	if err := s.craRepo.Create(ctx, cra); err != nil {
		return nil, fmt.Errorf("failed to create CRA: %w", err)
	}

	s.log.WithFields(logrus.Fields{"cra_id": cra.ID, "user_id": input.ActorID}).Info("CRA created")
	return cra, nil
}

// GetCra returns a CRA owned by the actor
func (s *CraService) GetCra(ctx context.Context, actorID, craID uint64) (*models.Cra, error) {
	cra, err := s.craRepo.FindByID(ctx, craID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCraNotFound
		}
		return nil, fmt.Errorf("failed to find CRA: %w", err)
	}
	if cra.CreatedByUserID != actorID {
		return nil, ErrNotCraCreator
	}

	return cra, nil
}

// ListCras returns the actor's CRAs. A month filter requires a year filter.
func (s *CraService) ListCras(ctx context.Context, query ListCrasQuery) ([]models.Cra, int64, error) {
	filter, err := parseCraFilter(query)
	if err != nil {
		return nil, 0, err
	}

	cras, total, err := s.craRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list CRAs: %w", err)
	}

	return cras, total, nil
}

// UpdateCra updates the editable fields of a draft CRA
func (s *CraService) UpdateCra(ctx context.Context, actorID, craID uint64, input UpdateCraInput) (*models.Cra, error) {
	if _, err := s.GetCra(ctx, actorID, craID); err != nil {
		return nil, err
	}

	if input.Description != nil && len([]rune(*input.Description)) > constants.MaxCraDescriptionLength {
		return nil, ErrCraDescriptionLength
	}
	var currency string
	if input.Currency != nil {
		normalized, err := normalizeCurrency(*input.Currency)
		if err != nil {
			return nil, err
		}
		currency = normalized
	}

	cra, err := s.craRepo.UpdateLocked(ctx, craID, func(locked *models.Cra, _ []models.CraEntry) error {
		if !locked.IsDraft() {
			return ErrCraNotDraft
		}
		if input.Description != nil {
			locked.Description = *input.Description
		}
		if input.Currency != nil {
			locked.Currency = currency
		}
		return nil
	})
	if err != nil {
		return nil, s.lockedWriteError(err, "failed to update CRA")
	}

	return cra, nil
}

// DeleteCra soft deletes a draft CRA and its entries
func (s *CraService) DeleteCra(ctx context.Context, actorID, craID uint64) error {
	cra, err := s.GetCra(ctx, actorID, craID)
	if err != nil {
		return err
	}
	if !cra.IsDraft() {
		return ErrCraNotDraft
	}

	if err := s.craRepo.Delete(ctx, craID); err != nil {
		return fmt.Errorf("failed to delete CRA: %w", err)
	}

	s.log.WithField("cra_id", craID).Info("CRA deleted")
	return nil
}

// SubmitCra moves a draft CRA with at least one entry to submitted
func (s *CraService) SubmitCra(ctx context.Context, actorID, craID uint64) (*models.Cra, error) {
	if _, err := s.GetCra(ctx, actorID, craID); err != nil {
		return nil, err
	}

	return s.transition(ctx, craID, models.CraStatusSubmitted, func(cra *models.Cra, entries []models.CraEntry) error {
		if len(entries) == 0 {
			return ErrCraEmpty
		}
		now := s.now()
		cra.SubmittedAt = &now
		return nil
	})
}

// LockCra moves a submitted CRA to locked
func (s *CraService) LockCra(ctx context.Context, actorID, craID uint64) (*models.Cra, error) {
	if _, err := s.GetCra(ctx, actorID, craID); err != nil {
		return nil, err
	}

	return s.transition(ctx, craID, models.CraStatusLocked, func(cra *models.Cra, _ []models.CraEntry) error {
		now := s.now()
		cra.LockedAt = &now
		return nil
	})
}

// transition checks and applies a status change on the locked CRA row.
// stamp runs after the transition check and may reject or amend the write.
func (s *CraService) transition(ctx context.Context, craID uint64, next models.CraStatus, stamp repository.EntryGuard) (*models.Cra, error) {
	var previous models.CraStatus
	cra, err := s.craRepo.UpdateLocked(ctx, craID, func(locked *models.Cra, entries []models.CraEntry) error {
		if err := checkCraTransition(locked, next); err != nil {
			return err
		}
		if err := stamp(locked, entries); err != nil {
			return err
		}
		previous = locked.Status
		locked.Status = next
		return nil
	})
	if err != nil {
		return nil, s.lockedWriteError(err, "failed to update CRA status")
	}

	s.metrics.Transition("cra", string(previous), string(next))
	s.log.WithFields(logrus.Fields{
		"cra_id": cra.ID,
		"from":   previous,
		"to":     next,
	}).Info("CRA status changed")
	return cra, nil
}

// lockedWriteError passes domain errors from a guard through unchanged.
func (s *CraService) lockedWriteError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCraNotFound
	}
	if _, ok := apierrors.KindOf(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func checkCraTransition(cra *models.Cra, next models.CraStatus) error {
	if !cra.Status.CanTransitionTo(next) {
		return apierrors.Wrap(ErrInvalidCraTransition, "%s to %s", cra.Status, next)
	}
	return nil
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidCraMonth
	}
	if year < constants.MinCraYear || year > constants.MaxCraYear {
		return ErrInvalidCraYear
	}
	return nil
}

func parseCraFilter(query ListCrasQuery) (repository.CraFilter, error) {
	filter := repository.CraFilter{
		UserID:   query.ActorID,
		Page:     query.Page,
		PageSize: query.PageSize,
	}

	yearRaw := strings.TrimSpace(query.Year)
	monthRaw := strings.TrimSpace(query.Month)

	if yearRaw != "" {
		year, err := strconv.Atoi(yearRaw)
		if err != nil {
			return filter, ErrCraFilterNotNumeric
		}
		if year < constants.MinCraYear || year > constants.MaxCraYear {
			return filter, ErrInvalidCraYear
		}
		filter.Year = &year
	}

	if monthRaw != "" {
		month, err := strconv.Atoi(monthRaw)
		if err != nil {
			return filter, ErrCraFilterNotNumeric
		}
		if filter.Year == nil {
			return filter, ErrCraMonthWithoutYear
		}
		if month < 1 || month > 12 {
			return filter, ErrInvalidCraMonth
		}
		filter.Month = &month
	}

	if statusRaw := strings.TrimSpace(query.Status); statusRaw != "" {
		status := models.CraStatus(statusRaw)
		if !status.Valid() {
			return filter, ErrInvalidCraStatus
		}
		filter.Status = &status
	}

	return filter, nil
}
