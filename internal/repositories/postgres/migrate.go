package postgres

import (
	"github.com/applymint/applymint/internal/models"
	"gorm.io/gorm"
)

// Migrate creates the interview tables. The vector extension must be
// available for the message embedding column.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}
	return db.AutoMigrate(
		&models.InterviewSession{},
		&models.InterviewQuestion{},
		&models.InterviewResponse{},
		&models.InterviewMessage{},
	)
}

// lockSession takes a row lock on the session so per-session sequence numbers
// (question order, message index) are assigned without races.
func lockSession(tx *gorm.DB, sessionID string) error {
	var s models.InterviewSession
	return tx.Select("id").
		Clauses(lockingClause).
		Where("id = ?", sessionID).
		Take(&s).Error
}
