package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

// PartyService manages vendors and customers.
type PartyService struct {
	DB *sql.DB
}

func NewPartyService(db *sql.DB) *PartyService {
	return &PartyService{DB: db}
}

func (s *PartyService) validate(p *models.Party) error {
	if err := validation.ValidateEntityID(p.ID, "party id"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(p.Name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(p.Name, validation.MaxNameLength, "name"); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown party type '%s'", validation.ErrValidationFailed, p.Type)
	}
	opening, err := validation.ValidateSignedAmount(p.OpeningBalance.String(), "opening balance")
	if err != nil {
		return err
	}
	p.OpeningBalance = opening
	return nil
}

func (s *PartyService) CreateParty(ctx context.Context, p *models.Party) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.CurrentBalance = p.OpeningBalance
	if err := model.CreateParty(s.DB, p); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("party created", "id", p.ID, "name", p.Name, "type", p.Type)
	return nil
}

// UpdateParty edits party fields; a changed opening balance shifts the
// current balance by the same difference.
func (s *PartyService) UpdateParty(ctx context.Context, p *models.Party) error {
	if err := s.validate(p); err != nil {
		return err
	}
	current, err := model.GetPartyByID(s.DB, p.ID)
	if err != nil {
		return err
	}
	p.CurrentBalance = current.CurrentBalance.Add(p.OpeningBalance.Sub(current.OpeningBalance))
	return model.UpdateParty(s.DB, p)
}

func (s *PartyService) GetParty(ctx context.Context, id string) (*models.Party, error) {
	return model.GetPartyByID(s.DB, id)
}

func (s *PartyService) ListParties(ctx context.Context) ([]models.Party, error) {
	return model.ListParties(s.DB)
}

func (s *PartyService) DeleteParty(ctx context.Context, id string) error {
	if err := model.DeleteParty(s.DB, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("party deleted", "id", id)
	return nil
}
