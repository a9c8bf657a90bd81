// Package model содержит доменные модели инвестиционной платформы.
package model

import "time"

// Account описывает финансовую учётную запись пользователя.
type Account struct {
	ID                  int64      `json:"id"`
	Phone               string     `json:"phone"`
	PasswordHash        []byte     `json:"-"`
	Balance             Amount     `json:"balance"`
	BonusBalance        Amount     `json:"bonus_balance"`
	CurrentProductID    *int64     `json:"current_product_id,omitempty"`
	LevelActivationDate *time.Time `json:"level_activation_date,omitempty"`
	InvitationCode      string     `json:"invitation_code"`
	InvitedByCode       *string    `json:"invited_by_code,omitempty"`
	ReferralIncome      Amount     `json:"referral_income"`
	DailySpinsRemaining int        `json:"daily_spins_remaining"`
	LastSpinDate        *time.Time `json:"last_spin_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Profile содержит анкетные данные владельца учётной записи.
type Profile struct {
	AccountID int64  `json:"-"`
	FullName  string `json:"full_name"`
	BankName  string `json:"bank_name"`
	IBAN      string `json:"iban"`
}

// Product описывает инвестиционный уровень.
type Product struct {
	ID               int64  `json:"id"`
	LevelName        string `json:"level_name"`
	MinDepositAmount Amount `json:"min_deposit_amount"`
	DailyIncome      Amount `json:"daily_income"`
	DurationDays     int    `json:"duration_days"`
	Order            int    `json:"order"`
	IsActive         bool   `json:"is_active"`
}

// Task описывает подписку учётной записи на инвестиционный уровень.
type Task struct {
	ID             int64      `json:"id"`
	AccountID      int64      `json:"-"`
	ProductID      int64      `json:"product_id"`
	IsCompleted    bool       `json:"is_completed"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	// LastIncomeDate: курсор начислений (календарная дата в полночь UTC).
	LastIncomeDate *time.Time `json:"last_income_date,omitempty"`
	Product        Product    `json:"product"`
}

// RequestStatus: статус заявки на пополнение или вывод.
type RequestStatus string

const (
	// RequestStatusPending: заявка ожидает решения администратора.
	RequestStatusPending RequestStatus = "PENDING"
	// RequestStatusApproved: заявка одобрена.
	RequestStatusApproved RequestStatus = "APPROVED"
	// RequestStatusRejected: заявка отклонена.
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Bank описывает банковские реквизиты платформы для пополнения.
type Bank struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AccountName string `json:"account_name"`
	IBAN        string `json:"iban"`
	IsActive    bool   `json:"is_active"`
}

// Deposit описывает заявку на пополнение баланса.
type Deposit struct {
	ID        int64         `json:"id"`
	AccountID int64         `json:"account_id"`
	BankID    *int64        `json:"bank_id,omitempty"`
	Amount    Amount        `json:"amount"`
	ProofKey  *string       `json:"proof_key,omitempty"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"`
}

// BankAccount описывает счёт пользователя для вывода средств.
type BankAccount struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"-"`
	BankName    string    `json:"bank_name"`
	AccountName string    `json:"account_name"`
	IBAN        string    `json:"iban"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Withdrawal описывает заявку на вывод средств.
type Withdrawal struct {
	ID             int64         `json:"id"`
	AccountID      int64         `json:"account_id"`
	BankAccountID  *int64        `json:"bank_account_id,omitempty"`
	Amount         Amount        `json:"amount"`
	TaxRate        Rate          `json:"tax_percentage"`
	AmountReceived Amount        `json:"amount_received"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ApprovedAt     *time.Time    `json:"approved_at,omitempty"`
	DecidedAt      *time.Time    `json:"decided_at,omitempty"`
}

// Prize описывает сектор колеса удачи.
type Prize struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Value    Amount `json:"value"`
	Weight   int    `json:"weight"`
	IsActive bool   `json:"is_active"`
}

// Spin: неизменяемая запись о вращении колеса.
type Spin struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"-"`
	PrizeID   *int64    `json:"prize_id,omitempty"`
	PrizeName string    `json:"prize_name"`
	Value     Amount    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Wallet: кошелёк учётной записи, к которому относится проводка.
type Wallet string

const (
	// WalletMain: основной баланс.
	WalletMain Wallet = "main"
	// WalletBonus: бонусный баланс.
	WalletBonus Wallet = "bonus"
)

// EntryKind: тип операции в журнале.
type EntryKind string

// Типы операций журнала.
const (
	EntryDeposit          EntryKind = "deposit"
	EntryWithdrawalHold   EntryKind = "withdrawal_hold"
	EntryWithdrawalRefund EntryKind = "withdrawal_refund"
	EntryProductStake     EntryKind = "product_stake"
	EntryDailyIncome      EntryKind = "daily_income"
	EntryReferralBonus    EntryKind = "referral_bonus"
	EntryWheelPrize       EntryKind = "wheel_prize"
)

// LedgerEntry: строка журнала движения средств.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"-"`
	Wallet       Wallet    `json:"wallet"`
	Kind         EntryKind `json:"kind"`
	Amount       Amount    `json:"amount"`
	BalanceAfter Amount    `json:"balance_after"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccrualKind: результат обработки задачи при начислении дохода.
type AccrualKind string

const (
	// AccrualCredited: начислен дневной доход.
	AccrualCredited AccrualKind = "credited"
	// AccrualCompleted: задача завершена по сроку.
	AccrualCompleted AccrualKind = "completed"
)

// AccrualEvent описывает изменение, произведённое начислением.
type AccrualEvent struct {
	TaskID    int64       `json:"task_id"`
	ProductID int64       `json:"product_id"`
	LevelName string      `json:"level_name"`
	Kind      AccrualKind `json:"kind"`
	Amount    Amount      `json:"amount"`
	Date      time.Time   `json:"date"`
}

// TeamMember описывает приглашённого пользователя.
type TeamMember struct {
	Phone      string    `json:"phone"`
	HasProduct bool      `json:"has_product"`
	JoinedAt   time.Time `json:"joined_at"`
}
