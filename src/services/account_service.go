package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

// ErrProtectedAccount rejects deleting the default account or the last one.
var ErrProtectedAccount = errors.New("account cannot be deleted")

// AccountService manages money accounts. Balances are derived: opening
// balance is the editable base, everything on top comes from reconciliation.
type AccountService struct {
	DB *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{DB: db}
}

func (s *AccountService) validate(acc *models.Account) error {
	if err := validation.ValidateEntityID(acc.ID, "account id"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(acc.Name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(acc.Name, validation.MaxNameLength, "name"); err != nil {
		return err
	}
	if !acc.Type.Valid() {
		return fmt.Errorf("%w: unknown account type '%s'", validation.ErrValidationFailed, acc.Type)
	}
	opening, err := validation.ValidateSignedAmount(acc.OpeningBalance.String(), "opening balance")
	if err != nil {
		return err
	}
	acc.OpeningBalance = opening
	return nil
}

// CreateAccount stores a new account with balance seeded from the opening
// balance. The very first account becomes the default settlement account.
func (s *AccountService) CreateAccount(ctx context.Context, acc *models.Account) error {
	if err := s.validate(acc); err != nil {
		return err
	}
	count, err := model.CountAccounts(s.DB)
	if err != nil {
		return err
	}
	acc.Balance = acc.OpeningBalance
	if err := model.CreateAccount(s.DB, acc, count == 0); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("account created", "id", acc.ID, "name", acc.Name, "default", count == 0)
	return nil
}

// UpdateAccount edits account fields. A changed opening balance shifts the
// stored balance by the same difference, so transaction history stays intact.
func (s *AccountService) UpdateAccount(ctx context.Context, acc *models.Account) error {
	if err := s.validate(acc); err != nil {
		return err
	}
	current, err := model.GetAccountByID(s.DB, acc.ID)
	if err != nil {
		return err
	}
	acc.Balance = current.Balance.Add(acc.OpeningBalance.Sub(current.OpeningBalance))
	return model.UpdateAccount(s.DB, acc)
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return model.GetAccountByID(s.DB, id)
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return model.ListAccounts(s.DB)
}

// DeleteAccount removes an account, orphaning its transactions. The default
// account and the last remaining account are protected.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	isDefault, err := model.IsDefaultAccount(s.DB, id)
	if err != nil {
		return err
	}
	if isDefault {
		return fmt.Errorf("%w: it is the default account", ErrProtectedAccount)
	}
	count, err := model.CountAccounts(s.DB)
	if err != nil {
		return err
	}
	if count <= 1 {
		return fmt.Errorf("%w: at least one account must remain", ErrProtectedAccount)
	}
	if err := model.DeleteAccount(s.DB, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("account deleted", "id", id)
	return nil
}
