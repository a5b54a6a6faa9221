package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
)

var (
	ErrCompanyNameRequired = apierrors.NewDomainError(apierrors.KindDomainValidation, "company name is required")
	ErrInvalidSiret        = apierrors.NewDomainError(apierrors.KindDomainValidation, "siret must be 14 digits")
	ErrInvalidSiren        = apierrors.NewDomainError(apierrors.KindDomainValidation, "siren must be 9 digits")
	ErrInvalidCountry      = apierrors.NewDomainError(apierrors.KindDomainValidation, "country must be an ISO 3166 alpha-2 code")
	ErrInvalidCurrency     = apierrors.NewDomainError(apierrors.KindDomainValidation, "currency must be an ISO 4217 code")
	ErrInvalidCompanyRole  = apierrors.NewDomainError(apierrors.KindDomainValidation, "role must be independent or client")
)

var (
	siretPattern    = regexp.MustCompile(`^\d{14}$`)
	sirenPattern    = regexp.MustCompile(`^\d{9}$`)
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// CompanyService handles company business logic
type CompanyService struct {
	companyRepo repository.CompanyRepository
	log         logrus.FieldLogger
}

// NewCompanyService creates a new CompanyService
func NewCompanyService(companyRepo repository.CompanyRepository, log logrus.FieldLogger) *CompanyService {
	return &CompanyService{
		companyRepo: companyRepo,
		log:         log,
	}
}

// CreateCompanyInput represents input for creating a company
type CreateCompanyInput struct {
	UserID   uint64
	Name     string
	Siret    string
	Siren    string
	Country  string
	Currency string
	Role     models.CompanyRole
}

// CreateCompany creates a company and links the user with the given role
func (s *CompanyService) CreateCompany(ctx context.Context, input CreateCompanyInput) (*models.UserCompany, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrCompanyNameRequired
	}
	if input.Siret != "" && !siretPattern.MatchString(input.Siret) {
		return nil, ErrInvalidSiret
	}
	if input.Siren != "" && !sirenPattern.MatchString(input.Siren) {
		return nil, ErrInvalidSiren
	}

	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = constants.DefaultCountry
	}
	if !countryPattern.MatchString(country) {
		return nil, ErrInvalidCountry
	}

	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.CompanyRoleIndependent
	}
	if !role.Valid() {
		return nil, ErrInvalidCompanyRole
	}

	company := &models.Company{
		Name:     name,
		Siret:    input.Siret,
		Siren:    input.Siren,
		Country:  country,
		Currency: currency,
	}
	member := &models.UserCompany{
		UserID: input.UserID,
		Role:   role,
	}

	if err := s.companyRepo.CreateWithMember(ctx, company, member); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	member.Company = *company

	s.log.WithFields(logrus.Fields{
		"user_id":    input.UserID,
		"company_id": company.ID,
		"role":       role,
	}).Info("Company created")
	return member, nil
}

// ListCompaniesForUser lists the companies a user is linked to
func (s *CompanyService) ListCompaniesForUser(ctx context.Context, userID uint64) ([]models.UserCompany, error) {
	links, err := s.companyRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	return links, nil
}

// normalizeCurrency upper-cases a currency code, defaulting to EUR.
func normalizeCurrency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		return constants.DefaultCurrency, nil
	}
	if !currencyPattern.MatchString(currency) {
		return "", ErrInvalidCurrency
	}
	return currency, nil
}
