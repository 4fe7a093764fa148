package services

import (
	"context"
	"database/sql"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanningService manages budgets and savings goals. Budget spend is always
// computed at read time from the transaction log, never stored.
type PlanningService struct {
	DB *sql.DB
}

func NewPlanningService(db *sql.DB) *PlanningService {
	return &PlanningService{DB: db}
}

// BudgetProgress is one budget with its spend measured against the limit.
type BudgetProgress struct {
	models.Budget
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

func (s *PlanningService) validateBudget(b *models.Budget) error {
	if err := validation.ValidateEntityID(b.ID, "budget id"); err != nil {
		return err
	}
	if err := validation.ValidateMonthString(b.Month, "month"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(b.Category, "category"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(b.Category, validation.MaxCategoryLength, "category"); err != nil {
		return err
	}
	limit, err := validation.ValidateAmount(b.Limit.String(), "limit")
	if err != nil {
		return err
	}
	b.Limit = limit
	return nil
}

func (s *PlanningService) CreateBudget(ctx context.Context, b *models.Budget) error {
	if err := s.validateBudget(b); err != nil {
		return err
	}
	if err := model.CreateBudget(s.DB, b); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("budget created", "id", b.ID, "month", b.Month, "category", b.Category)
	return nil
}

func (s *PlanningService) UpdateBudget(ctx context.Context, b *models.Budget) error {
	if err := s.validateBudget(b); err != nil {
		return err
	}
	return model.UpdateBudget(s.DB, b)
}

func (s *PlanningService) DeleteBudget(ctx context.Context, id string) error {
	return model.DeleteBudget(s.DB, id)
}

// BudgetProgressForMonth measures each budget of a month against the
// expense and purchase spend recorded in that month's transactions.
func (s *PlanningService) BudgetProgressForMonth(ctx context.Context, month string) ([]BudgetProgress, error) {
	if err := validation.ValidateMonthString(month, "month"); err != nil {
		return nil, err
	}
	budgets, err := model.ListBudgets(s.DB, month)
	if err != nil {
		return nil, err
	}
	txs, err := model.ListTransactions(s.DB, model.TransactionFilter{Month: month})
	if err != nil {
		return nil, err
	}

	spent := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Type == models.TypeExpense || tx.Type == models.TypePurchase {
			spent[tx.Category] = spent[tx.Category].Add(tx.Amount)
		}
	}

	progress := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		used := spent[b.Category]
		progress = append(progress, BudgetProgress{
			Budget:    b,
			Spent:     used,
			Remaining: b.Limit.Sub(used),
		})
	}
	return progress, nil
}

func (s *PlanningService) ListBudgets(ctx context.Context, month string) ([]models.Budget, error) {
	return model.ListBudgets(s.DB, month)
}

// CopyBudgets replicates one month's budget limits into another month.
// Categories already budgeted in the target month keep their existing limit.
func (s *PlanningService) CopyBudgets(ctx context.Context, fromMonth, toMonth string) ([]models.Budget, error) {
	if err := validation.ValidateMonthString(fromMonth, "from month"); err != nil {
		return nil, err
	}
	if err := validation.ValidateMonthString(toMonth, "to month"); err != nil {
		return nil, err
	}

	source, err := model.ListBudgets(s.DB, fromMonth)
	if err != nil {
		return nil, err
	}
	existing, err := model.ListBudgets(s.DB, toMonth)
	if err != nil {
		return nil, err
	}
	taken := map[string]bool{}
	for _, b := range existing {
		taken[b.Category] = true
	}

	copied := []models.Budget{}
	for _, b := range source {
		if taken[b.Category] {
			continue
		}
		dup := models.Budget{
			ID:       uuid.NewString(),
			Month:    toMonth,
			Category: b.Category,
			Limit:    b.Limit,
		}
		if err := model.CreateBudget(s.DB, &dup); err != nil {
			return nil, err
		}
		copied = append(copied, dup)
	}
	logger.FromContext(ctx).Info("budgets copied",
		"from", fromMonth, "to", toMonth, "count", len(copied))
	return copied, nil
}

func (s *PlanningService) validateGoal(g *models.Goal) error {
	if err := validation.ValidateEntityID(g.ID, "goal id"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(g.Name, "name"); err != nil {
		return err
	}
	target, err := validation.ValidateAmount(g.Target.String(), "target")
	if err != nil {
		return err
	}
	g.Target = target
	current, err := validation.ValidateNonNegativeAmount(g.Current.String(), "current")
	if err != nil {
		return err
	}
	g.Current = current
	return nil
}

func (s *PlanningService) CreateGoal(ctx context.Context, g *models.Goal) error {
	if err := s.validateGoal(g); err != nil {
		return err
	}
	if err := model.CreateGoal(s.DB, g); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("goal created", "id", g.ID, "name", g.Name)
	return nil
}

func (s *PlanningService) UpdateGoal(ctx context.Context, g *models.Goal) error {
	if err := s.validateGoal(g); err != nil {
		return err
	}
	return model.UpdateGoal(s.DB, g)
}

func (s *PlanningService) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return model.ListGoals(s.DB)
}

func (s *PlanningService) DeleteGoal(ctx context.Context, id string) error {
	return model.DeleteGoal(s.DB, id)
}
