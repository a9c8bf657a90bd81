// Package accrual содержит правила ежедневного начисления дохода по инвестиционным задачам
// и планировщик фонового обхода.
package accrual

import (
	"time"

	"github.com/mmeshcher/investplatform/internal/model"
)

// Decision: результат оценки задачи на конкретную дату.
type Decision int

const (
	// Credit: начислить дневной доход и сдвинуть курсор на сегодня.
	Credit Decision = iota
	// Complete: срок задачи истёк, задачу нужно завершить.
	Complete
	// AlreadyAccrued: доход за сегодня уже начислен.
	AlreadyAccrued
	// Weekend: выходной день, начисление и курсор не меняются.
	Weekend
)

func (d Decision) String() string {
	switch d {
	case Credit:
		return "credit"
	case Complete:
		return "complete"
	case AlreadyAccrued:
		return "already_accrued"
	case Weekend:
		return "weekend"
	default:
		return "unknown"
	}
}

// Policy задаёт бизнес-календарь начислений.
type Policy struct {
	Location     *time.Location
	SkipWeekends bool
}

// DateOf возвращает календарную дату момента t в часовом поясе loc,
// представленную полночью UTC. В таком виде даты хранятся в колонках DATE.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today возвращает текущую календарную дату бизнес-календаря.
func (p Policy) Today(now time.Time) time.Time {
	return DateOf(now, p.Location)
}

// MaturityDate возвращает дату завершения задачи: дата активации плюс срок продукта.
func (p Policy) MaturityDate(activatedAt time.Time, durationDays int) time.Time {
	return DateOf(activatedAt, p.Location).AddDate(0, 0, durationDays)
}

// IsWeekend сообщает, является ли дата выходным днём с учётом политики.
func (p Policy) IsWeekend(day time.Time) bool {
	if !p.SkipWeekends {
		return false
	}
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Evaluate определяет, что нужно сделать с активной задачей в день today.
// Срок проверяется первым: задача, достигшая даты завершения, завершается без начисления.
func (p Policy) Evaluate(task model.Task, today time.Time) Decision {
	if !today.Before(p.MaturityDate(task.CreatedAt, task.Product.DurationDays)) {
		return Complete
	}
	if task.LastIncomeDate != nil && !task.LastIncomeDate.Before(today) {
		return AlreadyAccrued
	}
	if p.IsWeekend(today) {
		return Weekend
	}
	return Credit
}

// DaysRemaining возвращает число дней до завершения задачи (не меньше нуля).
func (p Policy) DaysRemaining(task model.Task, today time.Time) int {
	left := int(p.MaturityDate(task.CreatedAt, task.Product.DurationDays).Sub(today).Hours() / 24)
	if left < 0 {
		return 0
	}
	return left
}
