package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
	"github.com/mmeshcher/investplatform/internal/validation"
)

const (
	invitationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	invitationAttempts = 20
	minPasswordLength  = 6
	// bcrypt не принимает пароли длиннее 72 байт.
	maxPasswordBytes = 72
)

// Registration: результат регистрации.
type Registration struct {
	Account *model.Account
	// InviteCodeErr равен ErrInvalidInviteCode, если код приглашения не найден.
	// Регистрация при этом завершается успешно, но без реферального бонуса.
	InviteCodeErr error
}

// Team: сводка по приглашённым пользователям.
type Team struct {
	InvitationCode string             `json:"invitation_code"`
	ReferralIncome model.Amount       `json:"referral_income"`
	TotalInvited   int                `json:"total_invited"`
	TotalActive    int                `json:"total_active"`
	Members        []model.TeamMember `json:"members"`
}

// Register создаёт учётную запись. Если код приглашения принадлежит существующему
// пользователю, тому начисляется реферальный бонус в той же транзакции.
func (s *Service) Register(ctx context.Context, phone, password, inviteCode string) (*Registration, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return nil, ErrInvalidPhone
	}
	if err := checkPassword("password", password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))

	var res *Registration
	err = s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		reg := &Registration{}

		code, err := s.newInvitationCode(ctx, tx)
		if err != nil {
			return err
		}

		acc := &model.Account{
			Phone:          normalized,
			PasswordHash:   hash,
			InvitationCode: code,
		}

		var referrer *model.Account
		if inviteCode != "" {
			referrer, err = tx.GetAccountByInvitationCodeForUpdate(ctx, inviteCode)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				referrer = nil
				reg.InviteCodeErr = ErrInvalidInviteCode
			case err != nil:
				return err
			default:
				acc.InvitedByCode = &inviteCode
			}
		}

		if _, err := tx.CreateAccount(ctx, acc); err != nil {
			return duplicate(err)
		}
		if err := tx.UpsertProfile(ctx, model.Profile{AccountID: acc.ID}); err != nil {
			return err
		}

		if referrer != nil && s.settings.ReferralBonus > 0 {
			ref := "referral:" + validation.MaskPhone(acc.Phone)
			if err := l.creditBonus(ctx, referrer, s.settings.ReferralBonus, model.EntryReferralBonus, ref); err != nil {
				return err
			}
			referrer.ReferralIncome += s.settings.ReferralBonus
			if err := tx.UpdateAccount(ctx, referrer); err != nil {
				return err
			}
		}

		reg.Account = acc
		res = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		zap.Int64("account_id", res.Account.ID),
		zap.String("phone", validation.MaskPhone(res.Account.Phone)),
		zap.Bool("referred", res.Account.InvitedByCode != nil),
	)
	return res, nil
}

// newInvitationCode генерирует уникальный код приглашения.
func (s *Service) newInvitationCode(ctx context.Context, tx repository.Tx) (string, error) {
	for range invitationAttempts {
		code, err := randomCode(s.settings.InviteCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := tx.InvitationCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate invitation code: %d collisions in a row", invitationAttempts)
}

func randomCode(n int) (string, error) {
	limit := big.NewInt(int64(len(invitationAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate invitation code: %w", err)
		}
		b.WriteByte(invitationAlphabet[i.Int64()])
	}
	return b.String(), nil
}

// Authenticate проверяет телефон и пароль и возвращает идентификатор учётной записи.
func (s *Service) Authenticate(ctx context.Context, phone, password string) (int64, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return 0, ErrInvalidCredentials
	}

	acc, err := s.repo.GetAccountByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}
	return acc.ID, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, current, next string) error {
	if err := checkPassword("new_password", next); err != nil {
		return err
	}

	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return notFound("account", err)
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return notFound("account", s.repo.UpdatePasswordHash(ctx, accountID, hash))
}

func checkPassword(field, password string) error {
	switch {
	case len(password) < minPasswordLength:
		return invalid(field, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(password) > maxPasswordBytes:
		return invalid(field, fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// GetAccount возвращает учётную запись.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, notFound("account", err)
	}
	return acc, nil
}

// GetProfile возвращает анкету пользователя.
func (s *Service) GetProfile(ctx context.Context, accountID int64) (*model.Profile, error) {
	p, err := s.repo.GetProfile(ctx, accountID)
	if err != nil {
		return nil, notFound("profile", err)
	}
	return p, nil
}

// UpdateProfile сохраняет анкету. Указанный IBAN регистрируется как счёт для вывода,
// если он ещё не привязан к этой учётной записи.
func (s *Service) UpdateProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.BankName = strings.TrimSpace(p.BankName)
	if p.IBAN != "" {
		p.IBAN = validation.NormalizeIBAN(p.IBAN)
		if !validation.IsValidIBAN(p.IBAN) {
			return nil, invalid("iban", "invalid IBAN")
		}
	}

	err := s.withinTx(ctx, func(tx repository.Tx, _ *ledger) error {
		if err := tx.UpsertProfile(ctx, p); err != nil {
			return notFound("account", err)
		}
		if p.IBAN == "" {
			return nil
		}

		existing, err := tx.GetBankAccountByIBAN(ctx, p.IBAN)
		switch {
		case err == nil:
			if existing.AccountID != p.AccountID {
				return fmt.Errorf("%w: %w", ErrDuplicate, repository.ErrIBANTaken)
			}
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		_, err = tx.CreateBankAccount(ctx, &model.BankAccount{
			AccountID:   p.AccountID,
			BankName:    p.BankName,
			AccountName: p.FullName,
			IBAN:        p.IBAN,
			IsActive:    true,
		})
		return duplicate(err)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Team возвращает список приглашённых пользователей с замаскированными телефонами.
func (s *Service) Team(ctx context.Context, accountID int64) (*Team, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, notFound("account", err)
	}

	members, err := s.repo.ListTeam(ctx, acc.InvitationCode)
	if err != nil {
		return nil, err
	}

	team := &Team{
		InvitationCode: acc.InvitationCode,
		ReferralIncome: acc.ReferralIncome,
		TotalInvited:   len(members),
		Members:        make([]model.TeamMember, 0, len(members)),
	}
	for _, m := range members {
		if m.HasProduct {
			team.TotalActive++
		}
		m.Phone = validation.MaskPhone(m.Phone)
		team.Members = append(team.Members, m)
	}
	return team, nil
}
