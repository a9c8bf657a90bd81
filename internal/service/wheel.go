package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/investplatform/internal/metrics"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
)

// WheelStatus: состояние колеса удачи для учётной записи.
type WheelStatus struct {
	SpinsRemaining int           `json:"spins_remaining"`
	SpinsPerDay    int           `json:"spins_per_day"`
	Prizes         []model.Prize `json:"prizes"`
}

// WheelStatus возвращает оставшиеся вращения и активные призы. С наступлением
// нового дня квота восстанавливается.
func (s *Service) WheelStatus(ctx context.Context, accountID int64) (*WheelStatus, error) {
	var status *WheelStatus
	err := s.withinTx(ctx, func(tx repository.Tx, _ *ledger) error {
		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFound("account", err)
		}
		if s.resetSpins(acc, s.policy.Today(s.now())) {
			if err := tx.UpdateAccount(ctx, acc); err != nil {
				return err
			}
		}

		prizes, err := tx.ListActivePrizes(ctx)
		if err != nil {
			return err
		}
		status = &WheelStatus{
			SpinsRemaining: acc.DailySpinsRemaining,
			SpinsPerDay:    s.settings.WheelDailySpins,
			Prizes:         prizes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// resetSpins восстанавливает дневную квоту, если последнее вращение было до today.
func (s *Service) resetSpins(acc *model.Account, today time.Time) bool {
	if acc.LastSpinDate != nil && !acc.LastSpinDate.Before(today) {
		return false
	}
	acc.DailySpinsRemaining = s.settings.WheelDailySpins
	acc.LastSpinDate = &today
	return true
}

// SpinWheel тратит одно вращение и выбирает приз пропорционально весам.
// Денежный приз зачисляется на основной баланс.
func (s *Service) SpinWheel(ctx context.Context, accountID int64) (*model.Spin, error) {
	var spin *model.Spin
	err := s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFound("account", err)
		}

		today := s.policy.Today(s.now())
		s.resetSpins(acc, today)
		if acc.DailySpinsRemaining <= 0 {
			return ErrQuotaExhausted
		}

		prizes, err := tx.ListActivePrizes(ctx)
		if err != nil {
			return err
		}
		total := totalWeight(prizes)
		if total == 0 {
			return ErrNoPrizesConfigured
		}
		prize, ok := selectPrize(prizes, s.draw(float64(total)))
		if !ok {
			return ErrNoPrizesConfigured
		}

		acc.DailySpinsRemaining--
		acc.LastSpinDate = &today

		sp := &model.Spin{
			AccountID: accountID,
			PrizeID:   &prize.ID,
			PrizeName: prize.Name,
			Value:     prize.Value,
		}
		if _, err := tx.CreateSpin(ctx, sp); err != nil {
			return err
		}

		if prize.Value > 0 {
			ref := fmt.Sprintf("spin:%d", sp.ID)
			if err := l.credit(ctx, acc, prize.Value, model.EntryWheelPrize, ref); err != nil {
				return err
			}
		}
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		spin = sp
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSpin(spin.PrizeName)
	s.logger.Info("wheel spun",
		zap.Int64("account_id", accountID),
		zap.String("prize", spin.PrizeName),
		zap.Stringer("value", spin.Value),
	)
	return spin, nil
}

func totalWeight(prizes []model.Prize) int {
	total := 0
	for _, p := range prizes {
		if p.Weight > 0 {
			total += p.Weight
		}
	}
	return total
}

// selectPrize возвращает первый приз, накопленный вес которого не меньше draw.
// Призы с неположительным весом не участвуют в выборе.
func selectPrize(prizes []model.Prize, draw float64) (model.Prize, bool) {
	var (
		cumulative float64
		last       model.Prize
		found      bool
	)
	for _, p := range prizes {
		if p.Weight <= 0 {
			continue
		}
		cumulative += float64(p.Weight)
		if cumulative >= draw {
			return p, true
		}
		last, found = p, true
	}
	return last, found
}

// ListSpins возвращает историю вращений учётной записи.
func (s *Service) ListSpins(ctx context.Context, accountID int64) ([]model.Spin, error) {
	return s.repo.ListSpins(ctx, accountID)
}

// ListPrizes возвращает все призы, включая неактивные.
func (s *Service) ListPrizes(ctx context.Context) ([]model.Prize, error) {
	return s.repo.ListPrizes(ctx, false)
}

// CreatePrize добавляет сектор колеса.
func (s *Service) CreatePrize(ctx context.Context, p model.Prize) (*model.Prize, error) {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return nil, invalid("name", "must not be empty")
	case p.Value < 0:
		return nil, invalid("value", "must not be negative")
	case p.Weight < 0:
		return nil, invalid("weight", "must not be negative")
	}

	if _, err := s.repo.CreatePrize(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
