package repository

import (
	"context"
	"time"

	"github.com/yukikurage/foresy-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// Save persists changes to an existing user
	Save(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByProviderUID finds an OAuth user by provider identity
	FindByProviderUID(ctx context.Context, provider, uid string) (*models.User, error)
}

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, session *models.Session) error

	// FindByID finds a session by ID
	FindByID(ctx context.Context, id uint64) (*models.Session, error)

	// FindLatestActive returns the most recently created active session of a user
	FindLatestActive(ctx context.Context, userID uint64, now time.Time) (*models.Session, error)

	// Touch persists the sliding expiry of a session
	Touch(ctx context.Context, session *models.Session) error

	// Deactivate marks one session inactive
	Deactivate(ctx context.Context, id uint64) error

	// DeactivateAllForUser marks every active session of a user inactive
	DeactivateAllForUser(ctx context.Context, userID uint64) (int64, error)
}

// CompanyRepository defines the interface for company data access
type CompanyRepository interface {
	// CreateWithMember creates a company and links the user to it atomically
	CreateWithMember(ctx context.Context, company *models.Company, member *models.UserCompany) error

	// FindByID finds a company by ID
	FindByID(ctx context.Context, id uint64) (*models.Company, error)

	// ListByUserID lists the companies a user is linked to, with the company preloaded
	ListByUserID(ctx context.Context, userID uint64) ([]models.UserCompany, error)

	// FindByUserAndRole finds the first company of a user with the given role
	FindByUserAndRole(ctx context.Context, userID uint64, role models.CompanyRole) (*models.UserCompany, error)
}

// MissionRepository defines the interface for mission data access
type MissionRepository interface {
	// CreateWithRelations creates a mission, its company links and the optional pivot row
	CreateWithRelations(ctx context.Context, mission *models.Mission, links []models.MissionCompany, pivot *models.UserMission) error

	// FindByID finds a mission by ID with its companies preloaded
	FindByID(ctx context.Context, id uint64) (*models.Mission, error)

	// List retrieves missions with filtering and pagination
	List(ctx context.Context, filter MissionFilter) ([]models.Mission, int64, error)

	// UpdateLocked locks a live mission, lets apply change it and saves the
	// result in the same transaction. An apply error rolls back.
	UpdateLocked(ctx context.Context, id uint64, apply func(mission *models.Mission) error) (*models.Mission, error)

	// Archive soft deletes a mission
	Archive(ctx context.Context, id uint64) error

	// CountLiveEntryReferences counts live CRA entries linked to a mission
	CountLiveEntryReferences(ctx context.Context, missionID uint64) (int64, error)
}

// MissionFilter holds filtering options for listing missions
type MissionFilter struct {
	UserID     uint64
	CompanyIDs []uint64
	Status     *models.MissionStatus
	Page       int
	PageSize   int
}

// CraRepository defines the interface for CRA data access
type CraRepository interface {
	// Create creates a new CRA
	Create(ctx context.Context, cra *models.Cra) error

	// FindByID finds a live CRA by ID
	FindByID(ctx context.Context, id uint64) (*models.Cra, error)

	// FindByPeriod finds a live CRA of a user for a month
	FindByPeriod(ctx context.Context, userID uint64, year, month int) (*models.Cra, error)

	// List retrieves CRAs with filtering and pagination
	List(ctx context.Context, filter CraFilter) ([]models.Cra, int64, error)

	// UpdateLocked locks a live CRA, runs guard against it and its live
	// entries, then writes the fields guard changed. A guard error rolls back.
	UpdateLocked(ctx context.Context, craID uint64, guard EntryGuard) (*models.Cra, error)

	// Delete soft deletes a CRA and its entries
	Delete(ctx context.Context, id uint64) error
}

// CraFilter holds filtering options for listing CRAs. Filters AND-compose.
type CraFilter struct {
	UserID   uint64
	Year     *int
	Month    *int
	Status   *models.CraStatus
	Page     int
	PageSize int
}

// EntryGuard validates an entry write against the locked CRA and its live
// entries. It runs inside the write transaction; returning an error rolls it back.
type EntryGuard func(cra *models.Cra, entries []models.CraEntry) error

// CraEntryRepository defines the interface for CRA entry data access.
// Every write locks the parent CRA, runs the guard, writes the entry and its
// join rows, and recalculates the CRA totals in a single transaction.
type CraEntryRepository interface {
	// Create creates an entry linked to a CRA and optionally a mission
	Create(ctx context.Context, craID uint64, entry *models.CraEntry, missionID *uint64, guard EntryGuard) (*models.Cra, error)

	// Update updates an entry's fields
	Update(ctx context.Context, craID uint64, entry *models.CraEntry, guard EntryGuard) (*models.Cra, error)

	// Delete soft deletes an entry
	Delete(ctx context.Context, craID, entryID uint64, guard EntryGuard) (*models.Cra, error)

	// FindByID finds a live entry belonging to a CRA
	FindByID(ctx context.Context, craID, entryID uint64) (*models.CraEntry, error)

	// ListByCra lists live entries of a CRA ordered by date. Page and pageSize
	// of zero return every entry.
	ListByCra(ctx context.Context, craID uint64, page, pageSize int) ([]models.CraEntry, int64, error)
}
