package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by list and lookup queries
func AddIndexes(db *gorm.DB, log logrus.FieldLogger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Session lookups during authentication and revoke_all
		{"sessions", "idx_sessions_user_active", "user_id, active"},

		// CRA listing by creator and period
		{"cras", "idx_cras_creator_period", "created_by_user_id, year, month"},

		// Mission listing by creator and status
		{"missions", "idx_missions_creator_status", "created_by_user_id, status"},

		// Relation lookups from the company side
		{"mission_companies", "idx_mission_companies_company_id", "company_id"},
		{"user_companies", "idx_user_companies_company_id", "company_id"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.WithField("index", idx.name).Debug("Index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.WithFields(logrus.Fields{
			"index":   idx.name,
			"table":   idx.table,
			"columns": idx.columns,
		}).Info("Created index")
	}

	return nil
}
