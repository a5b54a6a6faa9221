package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEntryNotFound             = apierrors.NewDomainError(apierrors.KindNotFound, "CRA entry not found")
	ErrEntryDateRequired         = apierrors.NewDomainError(apierrors.KindDomainValidation, "date is required")
	ErrEntryDateInFuture         = apierrors.NewDomainError(apierrors.KindDomainValidation, "date cannot be in the future")
	ErrEntryDateOutsidePeriod    = apierrors.NewDomainError(apierrors.KindDomainValidation, "date must be within the CRA month")
	ErrEntryQuantityRequired     = apierrors.NewDomainError(apierrors.KindDomainValidation, "quantity is required")
	ErrEntryQuantityInvalid      = apierrors.NewDomainError(apierrors.KindDomainValidation, "quantity must be positive, at most 31 and a multiple of 0.25")
	ErrEntryUnitPriceInvalid     = apierrors.NewDomainError(apierrors.KindDomainValidation, "unit_price must be a positive amount in cents")
	ErrEntryDescriptionLength    = apierrors.NewDomainError(apierrors.KindDomainValidation, fmt.Sprintf("description must be at most %d characters", constants.MaxEntryDescriptionLength))
	ErrEntryMissionNotAccessible = apierrors.NewDomainError(apierrors.KindDomainValidation, "mission not found")
	ErrDuplicateEntry            = apierrors.NewDomainError(apierrors.KindConflict, "an entry already exists for this mission and date")
)

var (
	quarterDay  = decimal.NewFromInt(4)
	maxQuantity = decimal.NewFromInt(31)
)

// CraEntryService handles CRA entry business logic. Every write runs its
// rules against the locked CRA inside the repository transaction.
type CraEntryService struct {
	entryRepo repository.CraEntryRepository
	cras      *CraService
	missions  *MissionService
	log       logrus.FieldLogger
	metrics   metrics.Sink
	now       func() time.Time
}

// NewCraEntryService creates a new CraEntryService
func NewCraEntryService(
	entryRepo repository.CraEntryRepository,
	craService *CraService,
	missionService *MissionService,
	log logrus.FieldLogger,
	sink metrics.Sink,
) *CraEntryService {
	return &CraEntryService{
		entryRepo: entryRepo,
		cras:      craService,
		missions:  missionService,
		log:       log,
		metrics:   sink,
		now:       time.Now,
	}
}

// CreateEntryInput represents input for creating a CRA entry. UnitPrice
// defaults to the mission's daily rate when omitted.
type CreateEntryInput struct {
	ActorID     uint64
	CraID       uint64
	Date        *time.Time
	Quantity    *decimal.Decimal
	UnitPrice   *int64
	Description string
	MissionID   *uint64
}

// UpdateEntryInput represents a partial CRA entry update
type UpdateEntryInput struct {
	Date        *time.Time
	Quantity    *decimal.Decimal
	UnitPrice   *int64
	Description *string
}

// EntryResult is an entry together with its CRA after totals recalculation
type EntryResult struct {
	Entry *models.CraEntry
	Cra   *models.Cra
}

// CreateEntry validates and creates an entry, then recalculates the CRA totals
func (s *CraEntryService) CreateEntry(ctx context.Context, input CreateEntryInput) (*EntryResult, error) {
	if input.Date == nil {
		return nil, ErrEntryDateRequired
	}
	if input.Quantity == nil {
		return nil, ErrEntryQuantityRequired
	}

	var mission *models.Mission
	if input.MissionID != nil {
		var err error
		mission, err = s.missions.GetMission(ctx, input.ActorID, *input.MissionID)
		if err != nil {
			if errors.Is(err, ErrMissionNotFound) {
				return nil, ErrEntryMissionNotAccessible
			}
			return nil, err
		}
	}

	unitPrice := input.UnitPrice
	if unitPrice == nil && mission != nil {
		unitPrice = mission.DailyRate
	}
	if unitPrice == nil {
		return nil, ErrEntryUnitPriceInvalid
	}

	entry := &models.CraEntry{
		Date:        dateOnly(*input.Date),
		Quantity:    *input.Quantity,
		UnitPrice:   *unitPrice,
		Description: input.Description,
	}
	if err := s.validateEntry(entry); err != nil {
		return nil, err
	}

	cra, err := s.entryRepo.Create(ctx, input.CraID, entry, input.MissionID, s.writeGuard(input.ActorID, entry, input.MissionID))
	if err != nil {
		return nil, translateEntryError(err, "create")
	}
	if mission != nil {
		entry.MissionLink.Mission = *mission
	}

	s.metrics.EntryMutation("create")
	s.log.WithFields(logrus.Fields{
		"cra_id":       cra.ID,
		"cra_entry_id": entry.ID,
		"total_days":   cra.TotalDays.String(),
		"total_amount": cra.TotalAmount,
	}).Info("CRA entry created")
	return &EntryResult{Entry: entry, Cra: cra}, nil
}

// GetEntry returns a live entry of a CRA owned by the actor
func (s *CraEntryService) GetEntry(ctx context.Context, actorID, craID, entryID uint64) (*models.CraEntry, error) {
	if _, err := s.cras.GetCra(ctx, actorID, craID); err != nil {
		return nil, err
	}

	return s.findEntry(ctx, craID, entryID)
}

// ListEntries lists live entries of a CRA owned by the actor
func (s *CraEntryService) ListEntries(ctx context.Context, actorID, craID uint64, page, pageSize int) ([]models.CraEntry, int64, error) {
	if _, err := s.cras.GetCra(ctx, actorID, craID); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.entryRepo.ListByCra(ctx, craID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list CRA entries: %w", err)
	}
	return entries, total, nil
}

// UpdateEntry applies a partial update and recalculates the CRA totals
func (s *CraEntryService) UpdateEntry(ctx context.Context, actorID, craID, entryID uint64, input UpdateEntryInput) (*EntryResult, error) {
	if _, err := s.cras.GetCra(ctx, actorID, craID); err != nil {
		return nil, err
	}
	entry, err := s.findEntry(ctx, craID, entryID)
	if err != nil {
		return nil, err
	}

	if input.Date != nil {
		entry.Date = dateOnly(*input.Date)
	}
	if input.Quantity != nil {
		entry.Quantity = *input.Quantity
	}
	if input.UnitPrice != nil {
		entry.UnitPrice = *input.UnitPrice
	}
	if input.Description != nil {
		entry.Description = *input.Description
	}
	if err := s.validateEntry(entry); err != nil {
		return nil, err
	}

	cra, err := s.entryRepo.Update(ctx, craID, entry, s.writeGuard(actorID, entry, entry.MissionID()))
	if err != nil {
		return nil, translateEntryError(err, "update")
	}

	s.metrics.EntryMutation("update")
	s.log.WithFields(logrus.Fields{"cra_id": craID, "cra_entry_id": entry.ID}).Info("CRA entry updated")
	return &EntryResult{Entry: entry, Cra: cra}, nil
}

// DeleteEntry soft deletes an entry and recalculates the CRA totals
func (s *CraEntryService) DeleteEntry(ctx context.Context, actorID, craID, entryID uint64) (*models.Cra, error) {
	if _, err := s.cras.GetCra(ctx, actorID, craID); err != nil {
		return nil, err
	}
	if _, err := s.findEntry(ctx, craID, entryID); err != nil {
		return nil, err
	}

	cra, err := s.entryRepo.Delete(ctx, craID, entryID, func(cra *models.Cra, _ []models.CraEntry) error {
		return checkEntryWritable(cra, actorID)
	})
	if err != nil {
		return nil, translateEntryError(err, "delete")
	}

	s.metrics.EntryMutation("delete")
	s.log.WithFields(logrus.Fields{"cra_id": craID, "cra_entry_id": entryID}).Info("CRA entry deleted")
	return cra, nil
}

// writeGuard checks ownership, draft status, the CRA period and
// (mission, date) uniqueness against the locked CRA.
func (s *CraEntryService) writeGuard(actorID uint64, entry *models.CraEntry, missionID *uint64) repository.EntryGuard {
	return func(cra *models.Cra, entries []models.CraEntry) error {
		if err := checkEntryWritable(cra, actorID); err != nil {
			return err
		}
		if !cra.Contains(entry.Date) {
			return apierrors.Wrap(ErrEntryDateOutsidePeriod, "%s is not in %04d-%02d", entry.DateKey(), cra.Year, cra.Month)
		}

		key := entry.DateKey()
		for i := range entries {
			existing := &entries[i]
			if existing.ID == entry.ID {
				continue
			}
			if existing.DateKey() == key && sameMission(existing.MissionID(), missionID) {
				return apierrors.Wrap(ErrDuplicateEntry, "%s", key)
			}
		}
		return nil
	}
}

func (s *CraEntryService) validateEntry(entry *models.CraEntry) error {
	if entry.Date.IsZero() {
		return ErrEntryDateRequired
	}
	if entry.Date.After(dateOnly(s.now())) {
		return ErrEntryDateInFuture
	}
	if err := validateQuantity(entry.Quantity); err != nil {
		return err
	}
	if entry.UnitPrice <= 0 {
		return ErrEntryUnitPriceInvalid
	}
	if len([]rune(entry.Description)) > constants.MaxEntryDescriptionLength {
		return ErrEntryDescriptionLength
	}
	return nil
}

func (s *CraEntryService) findEntry(ctx context.Context, craID, entryID uint64) (*models.CraEntry, error) {
	entry, err := s.entryRepo.FindByID(ctx, craID, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find CRA entry: %w", err)
	}
	return entry, nil
}

func checkEntryWritable(cra *models.Cra, actorID uint64) error {
	if cra.CreatedByUserID != actorID {
		return ErrNotCraCreator
	}
	if !cra.IsDraft() {
		return apierrors.Wrap(ErrCraNotDraft, "status is %s", cra.Status)
	}
	return nil
}

func validateQuantity(quantity decimal.Decimal) error {
	if !quantity.IsPositive() || quantity.GreaterThan(maxQuantity) {
		return ErrEntryQuantityInvalid
	}
	if !quantity.Mul(quarterDay).IsInteger() {
		return ErrEntryQuantityInvalid
	}
	return nil
}

func translateEntryError(err error, operation string) error {
	if _, ok := apierrors.KindOf(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCraNotFound
	}
	return fmt.Errorf("failed to %s CRA entry: %w", operation, err)
}

func sameMission(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
