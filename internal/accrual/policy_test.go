package accrual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/investplatform/internal/model"
)

var wat = time.FixedZone("WAT", 60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPolicyToday(t *testing.T) {
	p := Policy{Location: wat}

	// 23:30 UTC воскресенья уже понедельник в Луанде
	got := p.Today(time.Date(2025, 3, 2, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, day(2025, 3, 3), got)

	got = p.Today(time.Date(2025, 3, 3, 22, 59, 0, 0, time.UTC))
	assert.Equal(t, day(2025, 3, 3), got)
}

func TestPolicyEvaluate(t *testing.T) {
	p := Policy{Location: wat, SkipWeekends: true}

	// понедельник, 3 марта 2025, срок 5 дней: завершение в субботу 8 марта
	activated := time.Date(2025, 3, 3, 10, 0, 0, 0, wat)
	cursor := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name     string
		duration int
		cursor   *time.Time
		today    time.Time
		want     Decision
	}{
		{
			name:     "same day as activation",
			duration: 5,
			cursor:   cursor(day(2025, 3, 3)),
			today:    day(2025, 3, 3),
			want:     AlreadyAccrued,
		},
		{
			name:     "next weekday",
			duration: 5,
			cursor:   cursor(day(2025, 3, 3)),
			today:    day(2025, 3, 4),
			want:     Credit,
		},
		{
			name:     "several days missed",
			duration: 5,
			cursor:   cursor(day(2025, 3, 3)),
			today:    day(2025, 3, 7),
			want:     Credit,
		},
		{
			name:     "maturity date completes even on saturday",
			duration: 5,
			cursor:   cursor(day(2025, 3, 7)),
			today:    day(2025, 3, 8),
			want:     Complete,
		},
		{
			name:     "past maturity",
			duration: 5,
			cursor:   cursor(day(2025, 3, 4)),
			today:    day(2025, 3, 20),
			want:     Complete,
		},
		{
			name:     "saturday skipped",
			duration: 30,
			cursor:   cursor(day(2025, 3, 7)),
			today:    day(2025, 3, 8),
			want:     Weekend,
		},
		{
			name:     "sunday skipped",
			duration: 30,
			cursor:   cursor(day(2025, 3, 7)),
			today:    day(2025, 3, 9),
			want:     Weekend,
		},
		{
			name:     "missing cursor still respects weekend",
			duration: 30,
			cursor:   nil,
			today:    day(2025, 3, 8),
			want:     Weekend,
		},
		{
			name:     "missing cursor on weekday",
			duration: 30,
			cursor:   nil,
			today:    day(2025, 3, 10),
			want:     Credit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := model.Task{
				CreatedAt:      activated,
				LastIncomeDate: tt.cursor,
				Product:        model.Product{DurationDays: tt.duration},
			}
			assert.Equal(t, tt.want, p.Evaluate(task, tt.today), tt.want.String())
		})
	}
}

func TestPolicyEvaluate_WeekendsAllowed(t *testing.T) {
	p := Policy{Location: wat, SkipWeekends: false}
	last := day(2025, 3, 7)
	task := model.Task{
		CreatedAt:      time.Date(2025, 3, 3, 10, 0, 0, 0, wat),
		LastIncomeDate: &last,
		Product:        model.Product{DurationDays: 30},
	}

	assert.Equal(t, Credit, p.Evaluate(task, day(2025, 3, 8)))
}

func TestPolicyDaysRemaining(t *testing.T) {
	p := Policy{Location: wat}
	task := model.Task{
		CreatedAt: time.Date(2025, 3, 3, 10, 0, 0, 0, wat),
		Product:   model.Product{DurationDays: 5},
	}

	assert.Equal(t, 5, p.DaysRemaining(task, day(2025, 3, 3)))
	assert.Equal(t, 1, p.DaysRemaining(task, day(2025, 3, 7)))
	assert.Equal(t, 0, p.DaysRemaining(task, day(2025, 3, 10)))
	assert.Equal(t, day(2025, 3, 8), p.MaturityDate(task.CreatedAt, 5))
}
