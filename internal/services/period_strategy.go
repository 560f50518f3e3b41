// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for budget period windows.
// Each period (weekly, monthly, yearly) has its own strategy that decides
// where the current window starts.

package services

import (
	"time"

	"finledger/internal/core"
)

// WindowStrategy computes the first day of the period window containing today.
type WindowStrategy interface {
	Start(today core.Date) core.Date
}

// WeeklyWindow starts on the most recent Sunday.
type WeeklyWindow struct{}

func (WeeklyWindow) Start(today core.Date) core.Date {
	return today.AddDays(-int(today.Weekday()))
}

// MonthlyWindow starts on the 1st of the current month.
type MonthlyWindow struct{}

func (MonthlyWindow) Start(today core.Date) core.Date {
	return core.NewDate(today.Year(), int(today.Month()), 1)
}

// YearlyWindow starts on January 1 of the current year.
type YearlyWindow struct{}

func (YearlyWindow) Start(today core.Date) core.Date {
	return core.NewDate(today.Year(), 1, 1)
}

// windowStrategies maps budget periods to their window strategies.
var windowStrategies = map[core.Period]WindowStrategy{
	core.Weekly:  WeeklyWindow{},
	core.Monthly: MonthlyWindow{},
	core.Yearly:  YearlyWindow{},
}

// GetWindowStrategy returns the strategy for period. Unknown periods fall back to monthly.
func GetWindowStrategy(period core.Period) WindowStrategy {
	if s, ok := windowStrategies[period]; ok {
		return s
	}
	return MonthlyWindow{}
}

// RegisterWindowStrategy registers or replaces the strategy for a period.
func RegisterWindowStrategy(period core.Period, s WindowStrategy) {
	windowStrategies[period] = s
}

// PeriodWindow returns the inclusive calendar-day window [start, today] for period at now.
func PeriodWindow(period core.Period, now time.Time) (start, end core.Date) {
	today := core.DateOf(now)
	return GetWindowStrategy(period).Start(today), today
}
