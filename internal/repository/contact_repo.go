package repository

import (
	"context"
	"strings"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// FindByNameFragment performs a case-insensitive substring search on contact names.
func (r *ContactRepository) FindByNameFragment(ctx context.Context, orgID uuid.UUID, fragment string) ([]models.Contact, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, nil
	}
	var contacts []models.Contact
	likeName := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("LOWER(name) LIKE ? ESCAPE '\\'", likeName).
		Order("name ASC").
		Order("id ASC").
		Find(&contacts).Error
	return contacts, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
