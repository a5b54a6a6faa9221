package services

import (
	"context"
	"errors"
	"fmt"
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
	ErrMissionNotFound          = apierrors.NewDomainError(apierrors.KindNotFound, "mission not found")
	ErrNotMissionCreator        = apierrors.NewDomainError(apierrors.KindPermissionDenied, "only the mission creator can perform this action")
	ErrNoIndependentCompany     = apierrors.NewDomainError(apierrors.KindPermissionDenied, "an independent company is required to create missions")
	ErrClientCompanyNotFound    = apierrors.NewDomainError(apierrors.KindDomainValidation, "client company not found")
	ErrMissionNameRequired      = apierrors.NewDomainError(apierrors.KindDomainValidation, "name is required")
	ErrInvalidMissionType       = apierrors.NewDomainError(apierrors.KindDomainValidation, "mission_type must be time_based or fixed_price")
	ErrInvalidMissionStatus     = apierrors.NewDomainError(apierrors.KindDomainValidation, "unknown mission status")
	ErrMissionStartDateRequired = apierrors.NewDomainError(apierrors.KindDomainValidation, "start_date is required")
	ErrMissionEndBeforeStart    = apierrors.NewDomainError(apierrors.KindDomainValidation, "end_date must be on or after start_date")
	ErrMissionDescriptionLength = apierrors.NewDomainError(apierrors.KindDomainValidation, fmt.Sprintf("description must be at most %d characters", constants.MaxMissionDescriptionLength))
	ErrMissionFinancials        = apierrors.NewDomainError(apierrors.KindDomainValidation, "invalid mission financials")
	ErrInvalidMissionTransition = apierrors.NewDomainError(apierrors.KindDomainValidation, "invalid mission status transition")
	ErrMissionInUse             = apierrors.NewDomainError(apierrors.KindConflict, "mission is referenced by CRA entries")
)

// MissionService handles mission lifecycle business logic
type MissionService struct {
	missionRepo repository.MissionRepository
	companyRepo repository.CompanyRepository
	userPivot   bool
	log         logrus.FieldLogger
	metrics     metrics.Sink
}

// NewMissionService creates a new MissionService. When userPivot is set every
// created mission also gets a UserMission row for its creator.
func NewMissionService(
	missionRepo repository.MissionRepository,
	companyRepo repository.CompanyRepository,
	userPivot bool,
	log logrus.FieldLogger,
	sink metrics.Sink,
) *MissionService {
	return &MissionService{
		missionRepo: missionRepo,
		companyRepo: companyRepo,
		userPivot:   userPivot,
		log:         log,
		metrics:     sink,
	}
}

// CreateMissionInput represents input for creating a mission
type CreateMissionInput struct {
	ActorID         uint64
	Name            string
	Description     string
	MissionType     models.MissionType
	Status          models.MissionStatus
	StartDate       *time.Time
	EndDate         *time.Time
	DailyRate       *int64
	FixedPrice      *int64
	Currency        string
	ClientCompanyID *uint64
}

// UpdateMissionInput represents a partial mission update
type UpdateMissionInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	DailyRate   *int64
	FixedPrice  *int64
	Currency    *string
	Status      *models.MissionStatus
}

// ListMissionsInput represents filters for listing missions
type ListMissionsInput struct {
	ActorID  uint64
	Status   *models.MissionStatus
	Page     int
	PageSize int
}

// CreateMission validates and creates a mission linked to the actor's independent company
func (s *MissionService) CreateMission(ctx context.Context, input CreateMissionInput) (*models.Mission, error) {
	independent, err := s.companyRepo.FindByUserAndRole(ctx, input.ActorID, models.CompanyRoleIndependent)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoIndependentCompany
		}
		return nil, fmt.Errorf("failed to find independent company: %w", err)
	}

	if input.StartDate == nil {
		return nil, ErrMissionStartDateRequired
	}

	status := input.Status
	if status == "" {
		status = models.MissionStatusLead
	}

	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	mission := &models.Mission{
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		MissionType:     input.MissionType,
		Status:          status,
		StartDate:       *input.StartDate,
		EndDate:         input.EndDate,
		DailyRate:       input.DailyRate,
		FixedPrice:      input.FixedPrice,
		Currency:        currency,
		CreatedByUserID: input.ActorID,
	}
	if err := validateMission(mission); err != nil {
		return nil, err
	}

	links := []models.MissionCompany{{CompanyID: independent.CompanyID, Role: models.CompanyRoleIndependent}}
	if input.ClientCompanyID != nil {
		if _, err := s.companyRepo.FindByID(ctx, *input.ClientCompanyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClientCompanyNotFound
			}
			return nil, fmt.Errorf("failed to find client company: %w", err)
		}
		links = append(links, models.MissionCompany{CompanyID: *input.ClientCompanyID, Role: models.CompanyRoleClient})
	}

	var pivot *models.UserMission
	if s.userPivot {
		pivot = &models.UserMission{UserID: input.ActorID, Role: models.UserMissionRoleCreator}
	}

	if err := s.missionRepo.CreateWithRelations(ctx, mission, links, pivot); err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	s.log.WithFields(logrus.Fields{"mission_id": mission.ID, "user_id": input.ActorID}).Info("Mission created")
	return s.GetMission(ctx, input.ActorID, mission.ID)
}

// GetMission returns a mission visible to the actor
func (s *MissionService) GetMission(ctx context.Context, actorID, missionID uint64) (*models.Mission, error) {
	mission, err := s.findMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	accessible, err := s.CanAccess(ctx, actorID, mission)
	if err != nil {
		return nil, err
	}
	if !accessible {
		return nil, ErrMissionNotFound
	}

	return mission, nil
}

// CanAccess reports whether the actor created the mission or belongs to one of its companies
func (s *MissionService) CanAccess(ctx context.Context, actorID uint64, mission *models.Mission) (bool, error) {
	if mission.CreatedByUserID == actorID {
		return true, nil
	}

	companyIDs, err := s.companyIDsForUser(ctx, actorID)
	if err != nil {
		return false, err
	}
	for _, link := range mission.Companies {
		for _, id := range companyIDs {
			if link.CompanyID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// ListMissions returns missions visible to the actor
func (s *MissionService) ListMissions(ctx context.Context, input ListMissionsInput) ([]models.Mission, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidMissionStatus
	}

	companyIDs, err := s.companyIDsForUser(ctx, input.ActorID)
	if err != nil {
		return nil, 0, err
	}

	missions, total, err := s.missionRepo.List(ctx, repository.MissionFilter{
		UserID:     input.ActorID,
		CompanyIDs: companyIDs,
		Status:     input.Status,
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list missions: %w", err)
	}

	return missions, total, nil
}

// UpdateMission applies a partial update; only the creator may update
func (s *MissionService) UpdateMission(ctx context.Context, actorID, missionID uint64, input UpdateMissionInput) (*models.Mission, error) {
	mission, err := s.GetMission(ctx, actorID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.CreatedByUserID != actorID {
		return nil, ErrNotMissionCreator
	}

	// The transition is checked against the locked row, not the copy above.
	var previous models.MissionStatus
	updated, err := s.missionRepo.UpdateLocked(ctx, missionID, func(locked *models.Mission) error {
		previous = locked.Status
		return applyMissionUpdate(locked, input)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		if _, ok := apierrors.KindOf(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update mission: %w", err)
	}

	if updated.Status != previous {
		s.metrics.Transition("mission", string(previous), string(updated.Status))
		s.log.WithFields(logrus.Fields{
			"mission_id": updated.ID,
			"from":       previous,
			"to":         updated.Status,
		}).Info("Mission status changed")
	}

	return updated, nil
}

func applyMissionUpdate(mission *models.Mission, input UpdateMissionInput) error {
	if input.Name != nil {
		mission.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		mission.Description = *input.Description
	}
	if input.StartDate != nil {
		mission.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		mission.EndDate = input.EndDate
	}
	if input.DailyRate != nil {
		mission.DailyRate = input.DailyRate
	}
	if input.FixedPrice != nil {
		mission.FixedPrice = input.FixedPrice
	}
	if input.Currency != nil {
		currency, err := normalizeCurrency(*input.Currency)
		if err != nil {
			return err
		}
		mission.Currency = currency
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return ErrInvalidMissionStatus
		}
		if *input.Status != mission.Status && !mission.Status.CanTransitionTo(*input.Status) {
			return apierrors.Wrap(ErrInvalidMissionTransition, "%s to %s", mission.Status, *input.Status)
		}
		mission.Status = *input.Status
	}

	return validateMission(mission)
}

// ArchiveMission soft deletes a mission that no live CRA entry references
func (s *MissionService) ArchiveMission(ctx context.Context, actorID, missionID uint64) error {
	mission, err := s.GetMission(ctx, actorID, missionID)
	if err != nil {
		return err
	}
	if mission.CreatedByUserID != actorID {
		return ErrNotMissionCreator
	}

	count, err := s.missionRepo.CountLiveEntryReferences(ctx, missionID)
	if err != nil {
		return fmt.Errorf("failed to check mission references: %w", err)
	}
	if count > 0 {
		return ErrMissionInUse
	}

	if err := s.missionRepo.Archive(ctx, missionID); err != nil {
		return fmt.Errorf("failed to archive mission: %w", err)
	}

	s.log.WithField("mission_id", missionID).Info("Mission archived")
	return nil
}

func (s *MissionService) findMission(ctx context.Context, missionID uint64) (*models.Mission, error) {
	mission, err := s.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to find mission: %w", err)
	}
	return mission, nil
}

func (s *MissionService) companyIDsForUser(ctx context.Context, userID uint64) ([]uint64, error) {
	links, err := s.companyRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user companies: %w", err)
	}

	ids := make([]uint64, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.CompanyID)
	}
	return ids, nil
}

func validateMission(m *models.Mission) error {
	if m.Name == "" {
		return ErrMissionNameRequired
	}
	if !m.MissionType.Valid() {
		return ErrInvalidMissionType
	}
	if !m.Status.Valid() {
		return ErrInvalidMissionStatus
	}
	if m.StartDate.IsZero() {
		return ErrMissionStartDateRequired
	}
	if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
		return ErrMissionEndBeforeStart
	}
	if len([]rune(m.Description)) > constants.MaxMissionDescriptionLength {
		return ErrMissionDescriptionLength
	}

	switch m.MissionType {
	case models.MissionTypeTimeBased:
		if m.FixedPrice != nil {
			return apierrors.Wrap(ErrMissionFinancials, "fixed_price is not allowed for time_based missions")
		}
		if m.DailyRate == nil || *m.DailyRate <= 0 {
			return apierrors.Wrap(ErrMissionFinancials, "daily_rate must be positive")
		}
		if *m.DailyRate > constants.MaxDailyRateCents {
			return apierrors.Wrap(ErrMissionFinancials, "daily_rate must be at most %d", constants.MaxDailyRateCents)
		}
	case models.MissionTypeFixedPrice:
		if m.DailyRate != nil {
			return apierrors.Wrap(ErrMissionFinancials, "daily_rate is not allowed for fixed_price missions")
		}
		if m.FixedPrice == nil || *m.FixedPrice <= 0 {
			return apierrors.Wrap(ErrMissionFinancials, "fixed_price must be positive")
		}
		if *m.FixedPrice > constants.MaxFixedPriceCents {
			return apierrors.Wrap(ErrMissionFinancials, "fixed_price must be at most %d", constants.MaxFixedPriceCents)
		}
	}
	return nil
}
