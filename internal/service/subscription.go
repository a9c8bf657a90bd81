package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/investplatform/internal/accrual"
	"github.com/mmeshcher/investplatform/internal/metrics"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
)

// TaskProgress: задача с рассчитанным сроком завершения.
type TaskProgress struct {
	model.Task
	MaturityDate  time.Time `json:"maturity_date"`
	DaysRemaining int       `json:"days_remaining"`
}

// TasksOverview: задачи учётной записи после начисления дохода.
type TasksOverview struct {
	Accrued []model.AccrualEvent `json:"accrued"`
	Tasks   []TaskProgress       `json:"tasks"`
}

// IncomeSummary: сводка доходов учётной записи.
type IncomeSummary struct {
	Accrued        []model.AccrualEvent `json:"accrued"`
	Balance        model.Amount         `json:"balance"`
	BonusBalance   model.Amount         `json:"bonus_balance"`
	DailyIncome    model.Amount         `json:"daily_income"`
	TotalIncome    model.Amount         `json:"total_income"`
	ReferralIncome model.Amount         `json:"referral_income"`
	CurrentProduct *model.Product       `json:"current_product,omitempty"`
}

// ListProducts возвращает доступные для активации уровни в порядке возрастания.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, true)
}

// CreateProduct добавляет инвестиционный уровень.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	p.LevelName = strings.TrimSpace(p.LevelName)
	switch {
	case p.LevelName == "":
		return nil, invalid("level_name", "must not be empty")
	case p.MinDepositAmount < 0:
		return nil, invalid("min_deposit_amount", "must not be negative")
	case p.DailyIncome < 0:
		return nil, invalid("daily_income", "must not be negative")
	case p.DurationDays <= 0:
		return nil, invalid("duration_days", "must be positive")
	}

	if _, err := s.repo.CreateProduct(ctx, &p); err != nil {
		return nil, duplicate(err)
	}
	return &p, nil
}

// ActivateProduct списывает стоимость уровня и создаёт по нему задачу. Допускается только
// переход на уровень с большим порядковым номером. Незавершённые задачи прежнего уровня
// закрываются в той же транзакции.
func (s *Service) ActivateProduct(ctx context.Context, accountID, productID int64) (*model.Task, error) {
	var task *model.Task
	err := s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFound("account", err)
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return notFound("product", err)
		}
		if !product.IsActive {
			return fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}

		if acc.CurrentProductID != nil {
			current, err := tx.GetProduct(ctx, *acc.CurrentProductID)
			switch {
			case err == nil:
				if product.Order <= current.Order {
					return fmt.Errorf("%w: %s -> %s", ErrNotAnUpgrade, current.LevelName, product.LevelName)
				}
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}

		active, err := tx.ListActiveTasksForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		ref := fmt.Sprintf("product:%d", product.ID)
		if err := l.debit(ctx, acc, product.MinDepositAmount, model.EntryProductStake, ref); err != nil {
			return err
		}

		now := s.now()
		for i := range active {
			active[i].IsCompleted = true
			active[i].CompletionDate = &now
			if err := tx.UpdateTask(ctx, &active[i]); err != nil {
				return err
			}
		}

		today := s.policy.Today(now)
		t := &model.Task{
			AccountID:      accountID,
			ProductID:      product.ID,
			CreatedAt:      now,
			LastIncomeDate: &today,
			Product:        *product,
		}
		if _, err := tx.CreateTask(ctx, t); err != nil {
			return err
		}

		acc.CurrentProductID = &product.ID
		acc.LevelActivationDate = &now
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product activated",
		zap.Int64("account_id", accountID),
		zap.Int64("product_id", productID),
		zap.String("level", task.Product.LevelName),
	)
	return task, nil
}

// AccruePendingIncome начисляет дневной доход по активным задачам учётной записи.
// Повторный вызов в тот же день ничего не начисляет. Задачи с истёкшим сроком
// завершаются, а текущий уровень сбрасывается, только если он совпадает с уровнем задачи.
func (s *Service) AccruePendingIncome(ctx context.Context, accountID int64) ([]model.AccrualEvent, error) {
	var (
		events   []model.AccrualEvent
		outcomes []string
	)
	err := s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		events, outcomes = nil, nil

		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFound("account", err)
		}

		tasks, err := tx.ListActiveTasksForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		now := s.now()
		today := s.policy.Today(now)
		changed := false

		for i := range tasks {
			t := &tasks[i]
			decision := s.policy.Evaluate(*t, today)
			outcomes = append(outcomes, decision.String())

			switch decision {
			case accrual.Complete:
				t.IsCompleted = true
				t.CompletionDate = &now
				if err := tx.UpdateTask(ctx, t); err != nil {
					return err
				}
				if acc.CurrentProductID != nil && *acc.CurrentProductID == t.ProductID {
					acc.CurrentProductID = nil
					acc.LevelActivationDate = nil
					changed = true
				}
				events = append(events, model.AccrualEvent{
					TaskID:    t.ID,
					ProductID: t.ProductID,
					LevelName: t.Product.LevelName,
					Kind:      model.AccrualCompleted,
					Date:      today,
				})

			case accrual.Credit:
				ref := fmt.Sprintf("task:%d", t.ID)
				if err := l.credit(ctx, acc, t.Product.DailyIncome, model.EntryDailyIncome, ref); err != nil {
					return err
				}
				day := today
				t.LastIncomeDate = &day
				if err := tx.UpdateTask(ctx, t); err != nil {
					return err
				}
				changed = true
				events = append(events, model.AccrualEvent{
					TaskID:    t.ID,
					ProductID: t.ProductID,
					LevelName: t.Product.LevelName,
					Kind:      model.AccrualCredited,
					Amount:    t.Product.DailyIncome,
					Date:      today,
				})
			}
		}

		if changed {
			return tx.UpdateAccount(ctx, acc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		metrics.RecordAccrualOutcome(o)
	}
	if len(events) > 0 {
		s.logger.Debug("income accrued",
			zap.Int64("account_id", accountID),
			zap.Int("events", len(events)),
		)
	}
	return events, nil
}

// AccrueAll начисляет доход по всем учётным записям с активными задачами и
// возвращает число обработанных записей. Ошибка одной записи не прерывает обход.
func (s *Service) AccrueAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListAccountsWithActiveTasks(ctx)
	if err != nil {
		return 0, err
	}

	var (
		processed int
		errs      []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if _, err := s.AccruePendingIncome(ctx, id); err != nil {
			s.logger.Warn("accrual failed", zap.Int64("account_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("account %d: %w", id, err))
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

// Tasks начисляет причитающийся доход и возвращает задачи учётной записи.
func (s *Service) Tasks(ctx context.Context, accountID int64) (*TasksOverview, error) {
	events, err := s.AccruePendingIncome(ctx, accountID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListTasks(ctx, accountID)
	if err != nil {
		return nil, err
	}

	today := s.policy.Today(s.now())
	overview := &TasksOverview{
		Accrued: events,
		Tasks:   make([]TaskProgress, 0, len(tasks)),
	}
	for _, t := range tasks {
		p := TaskProgress{
			Task:         t,
			MaturityDate: s.policy.MaturityDate(t.CreatedAt, t.Product.DurationDays),
		}
		if !t.IsCompleted {
			p.DaysRemaining = s.policy.DaysRemaining(t, today)
		}
		overview.Tasks = append(overview.Tasks, p)
	}
	return overview, nil
}

// Income начисляет причитающийся доход и возвращает сводку доходов.
func (s *Service) Income(ctx context.Context, accountID int64) (*IncomeSummary, error) {
	events, err := s.AccruePendingIncome(ctx, accountID)
	if err != nil {
		return nil, err
	}

	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, notFound("account", err)
	}
	total, err := s.repo.SumLedger(ctx, accountID, model.EntryDailyIncome)
	if err != nil {
		return nil, err
	}

	summary := &IncomeSummary{
		Accrued:        events,
		Balance:        acc.Balance,
		BonusBalance:   acc.BonusBalance,
		TotalIncome:    total,
		ReferralIncome: acc.ReferralIncome,
	}

	if acc.CurrentProductID != nil {
		products, err := s.repo.ListProducts(ctx, false)
		if err != nil {
			return nil, err
		}
		for i := range products {
			if products[i].ID == *acc.CurrentProductID {
				summary.CurrentProduct = &products[i]
				summary.DailyIncome = products[i].DailyIncome
				break
			}
		}
	}
	return summary, nil
}
