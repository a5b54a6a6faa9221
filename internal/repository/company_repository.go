package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/foresy-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrCreateCompany is returned when creating a company fails inside the transaction.
	ErrCreateCompany = errors.New("company repository: create company failed")
	// ErrCreateUserCompany is returned when linking the user fails inside the transaction.
	ErrCreateUserCompany = errors.New("company repository: create user company failed")
)

// GormCompanyRepository is a GORM implementation of CompanyRepository
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &GormCompanyRepository{db: db}
}

// CreateWithMember creates a company and the user link atomically
func (r *GormCompanyRepository) CreateWithMember(ctx context.Context, company *models.Company, member *models.UserCompany) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateCompany, err)
		}

		member.CompanyID = company.ID
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUserCompany, err)
		}

		return nil
	})
}

// FindByID finds a company by ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uint64) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// ListByUserID lists all companies a user is linked to
func (r *GormCompanyRepository) ListByUserID(ctx context.Context, userID uint64) ([]models.UserCompany, error) {
	var links []models.UserCompany
	if err := r.db.WithContext(ctx).
		Preload("Company").
		Where("user_id = ?", userID).
		Order("company_id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// FindByUserAndRole finds the first company of a user with the given role
func (r *GormCompanyRepository) FindByUserAndRole(ctx context.Context, userID uint64, role models.CompanyRole) (*models.UserCompany, error) {
	var link models.UserCompany
	if err := r.db.WithContext(ctx).
		Preload("Company").
		Where("user_id = ? AND role = ?", userID, role).
		Order("company_id ASC").
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}
