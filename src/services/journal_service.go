package services

import (
	"context"
	"database/sql"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

// JournalService manages dated notes, and the category lists offered for
// transaction entry.
type JournalService struct {
	DB *sql.DB
}

func NewJournalService(db *sql.DB) *JournalService {
	return &JournalService{DB: db}
}

func (s *JournalService) validate(e *models.JournalEntry) error {
	if err := validation.ValidateEntityID(e.ID, "journal id"); err != nil {
		return err
	}
	if _, err := validation.ValidateDateString(e.Date, "date"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(e.Title, "title"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(e.Title, validation.MaxNameLength, "title"); err != nil {
		return err
	}
	return validation.ValidateStringMaxLength(e.Content, validation.MaxJournalLength, "content")
}

func (s *JournalService) CreateEntry(ctx context.Context, e *models.JournalEntry) error {
	if err := s.validate(e); err != nil {
		return err
	}
	if err := model.CreateJournalEntry(s.DB, e); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("journal entry created", "id", e.ID)
	return nil
}

func (s *JournalService) UpdateEntry(ctx context.Context, e *models.JournalEntry) error {
	if err := s.validate(e); err != nil {
		return err
	}
	return model.UpdateJournalEntry(s.DB, e)
}

func (s *JournalService) GetEntry(ctx context.Context, id string) (*models.JournalEntry, error) {
	return model.GetJournalEntryByID(s.DB, id)
}

func (s *JournalService) ListEntries(ctx context.Context) ([]models.JournalEntry, error) {
	return model.ListJournalEntries(s.DB)
}

func (s *JournalService) DeleteEntry(ctx context.Context, id string) error {
	return model.DeleteJournalEntry(s.DB, id)
}

func (s *JournalService) ListCategories(ctx context.Context) (*models.Categories, error) {
	return model.ListCategories(s.DB)
}

func (s *JournalService) AddCategory(ctx context.Context, kind model.CategoryKind, name string) error {
	if !kind.Valid() {
		return validation.ErrValidationFailed
	}
	if err := validation.ValidateStringNotEmpty(name, "category name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(name, validation.MaxCategoryLength, "category name"); err != nil {
		return err
	}
	return model.AddCategory(s.DB, kind, name)
}

func (s *JournalService) DeleteCategory(ctx context.Context, kind model.CategoryKind, name string) error {
	if !kind.Valid() {
		return validation.ErrValidationFailed
	}
	return model.DeleteCategory(s.DB, kind, name)
}
