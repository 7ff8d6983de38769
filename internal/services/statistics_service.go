package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	"github.com/shopspring/decimal"
)

// unknownAccountName is the display fallback when a deposit references
// an account that can no longer be resolved.
const unknownAccountName = "未知账户"

// StatisticsService derives time-series statistics from reconciliation
// snapshots. Everything is computed relative to existing snapshots; with
// no snapshots every operation returns empty results, never an error.
type StatisticsService struct {
	store ledger.Store
	now   func() time.Time
}

func NewStatisticsService(store ledger.Store) *StatisticsService {
	return &StatisticsService{store: store, now: time.Now}
}

type (
	AccountDistribution struct {
		AccountID   int64
		AccountName string
		Amount      decimal.Decimal
		Percentage  float64
	}

	MonthlyStatistics struct {
		Month        string
		TotalAmount  decimal.Decimal
		Distribution []AccountDistribution
	}

	TrendPoint struct {
		Month  string
		Amount decimal.Decimal
		Notes  []string
	}

	TrendStatistics struct {
		Period string
		Data   []TrendPoint
	}

	AccountSeries struct {
		AccountID   int64
		AccountName string
		Amounts     []decimal.Decimal
	}

	AccountTrendStatistics struct {
		Period string
		Months []string
		Series []AccountSeries
	}

	YearlyPoint struct {
		Year     string
		Increase decimal.Decimal
	}

	MaturityItem struct {
		AccountName   string
		Amount        decimal.Decimal
		DepositTime   core.Date
		MaturityDate  core.Date
		RemainingDays int
	}
)

// Monthly computes the account distribution for a month (YYYY-MM). The
// month's value is its last snapshot; a month without one carries the
// nearest earlier snapshot's total forward with an empty distribution.
func (s *StatisticsService) Monthly(ctx context.Context, userID int64, month string) (MonthlyStatistics, error) {
	out := MonthlyStatistics{
		Month:        month,
		TotalAmount:  decimal.Zero,
		Distribution: []AccountDistribution{},
	}

	monthTime, err := time.Parse(core.MonthLayout, month)
	if err != nil {
		return out, fmt.Errorf("parse month %q: %w", month, err)
	}
	monthStart := core.DateOf(monthTime)
	monthEnd := monthStart.AddMonths(1).AddDays(-1)

	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("list snapshots: %w", err)
	}

	var target *core.Snapshot
	for i, snap := range snapshots {
		d := snap.ReconciliationDate
		if !d.Before(monthStart) && !d.After(monthEnd) {
			target = &snapshots[i]
			break
		}
	}

	if target == nil {
		// Forward-fill: carry the nearest earlier total, but show no
		// account breakdown since no deposits are dated in this month.
		for i, snap := range snapshots {
			if snap.ReconciliationDate.Before(monthStart) {
				out.TotalAmount = snapshots[i].TotalAmount
				break
			}
		}
		return out, nil
	}

	out.TotalAmount = target.TotalAmount

	deposits, err := s.store.ListDeposits(ctx, userID, target.ReconciliationDate)
	if err != nil {
		return out, fmt.Errorf("list deposits: %w", err)
	}
	if len(deposits) == 0 {
		return out, nil
	}

	sums := make(map[int64]decimal.Decimal)
	var accountIDs []int64
	for _, dep := range deposits {
		if _, seen := sums[dep.AccountID]; !seen {
			accountIDs = append(accountIDs, dep.AccountID)
		}
		sums[dep.AccountID] = sums[dep.AccountID].Add(dep.Amount)
	}

	names, err := s.accountNames(ctx, userID, accountIDs)
	if err != nil {
		return out, err
	}

	for _, accountID := range accountIDs {
		amount := sums[accountID]
		name := names[accountID]
		if name == "" {
			name = unknownAccountName
		}
		percentage := 0.0
		if out.TotalAmount.IsPositive() {
			percentage = amount.
				Div(out.TotalAmount).
				Mul(decimal.NewFromInt(100)).
				Round(2).
				InexactFloat64()
		}
		out.Distribution = append(out.Distribution, AccountDistribution{
			AccountID:   accountID,
			AccountName: name,
			Amount:      amount,
			Percentage:  percentage,
		})
	}
	return out, nil
}

// Trend builds a contiguous monthly series over the requested period
// (6m, 1y, 3y, all). A month's value is its last snapshot's total;
// months without snapshots forward-fill the previous value, 0 before any
// data. Notes collect every note-bearing snapshot in the month.
func (s *StatisticsService) Trend(ctx context.Context, userID int64, period string) (TrendStatistics, error) {
	out := TrendStatistics{Period: period, Data: []TrendPoint{}}

	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return out, nil
	}

	endDate := core.DateOf(s.now())
	startDate := s.trendStart(period, endDate, snapshots)

	// Last snapshot per month, and all snapshots per month for notes.
	lastByMonth := make(map[string]*core.Snapshot)
	snapsByMonth := make(map[string][]core.Snapshot)
	for i, snap := range snapshots {
		d := snap.ReconciliationDate
		if d.Before(startDate) {
			continue
		}
		key := d.MonthKey()
		snapsByMonth[key] = append(snapsByMonth[key], snap)
		if last, ok := lastByMonth[key]; !ok || d.After(last.ReconciliationDate) {
			lastByMonth[key] = &snapshots[i]
		}
	}

	lastAmount := decimal.Zero
	for _, month := range core.MonthsBetween(startDate, endDate) {
		point := TrendPoint{Month: month, Notes: []string{}}

		if last, ok := lastByMonth[month]; ok {
			point.Amount = last.TotalAmount
			point.Notes = monthNotes(snapsByMonth[month])
			lastAmount = point.Amount
		} else {
			point.Amount = lastAmount
		}
		out.Data = append(out.Data, point)
	}
	return out, nil
}

// AccountTrend builds one forward-filled monthly series per account,
// suitable for a stacked area chart. The months list matches Trend's.
func (s *StatisticsService) AccountTrend(ctx context.Context, userID int64, period string) (AccountTrendStatistics, error) {
	out := AccountTrendStatistics{Period: period, Months: []string{}, Series: []AccountSeries{}}

	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return out, nil
	}

	endDate := core.DateOf(s.now())
	startDate := s.trendStart(period, endDate, snapshots)
	out.Months = core.MonthsBetween(startDate, endDate)

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return out, nil
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
		}
		return accounts[i].ID > accounts[j].ID
	})

	lastDateByMonth := make(map[string]core.Date)
	for _, snap := range snapshots {
		d := snap.ReconciliationDate
		if d.Before(startDate) {
			continue
		}
		key := d.MonthKey()
		if last, ok := lastDateByMonth[key]; !ok || d.After(last) {
			lastDateByMonth[key] = d
		}
	}

	amounts := make(map[int64][]decimal.Decimal, len(accounts))
	lastAmounts := make(map[int64]decimal.Decimal, len(accounts))
	for _, acc := range accounts {
		lastAmounts[acc.ID] = decimal.Zero
	}

	for _, month := range out.Months {
		lastDate, ok := lastDateByMonth[month]
		if !ok {
			for _, acc := range accounts {
				amounts[acc.ID] = append(amounts[acc.ID], lastAmounts[acc.ID])
			}
			continue
		}

		deposits, err := s.store.ListDeposits(ctx, userID, lastDate)
		if err != nil {
			return out, fmt.Errorf("list deposits: %w", err)
		}
		sums := make(map[int64]decimal.Decimal)
		for _, dep := range deposits {
			sums[dep.AccountID] = sums[dep.AccountID].Add(dep.Amount)
		}

		for _, acc := range accounts {
			amount, ok := sums[acc.ID]
			if !ok {
				amount = decimal.Zero
			}
			lastAmounts[acc.ID] = amount
			amounts[acc.ID] = append(amounts[acc.ID], amount)
		}
	}

	for _, acc := range accounts {
		out.Series = append(out.Series, AccountSeries{
			AccountID:   acc.ID,
			AccountName: acc.Name,
			Amounts:     amounts[acc.ID],
		})
	}
	return out, nil
}

// Yearly computes the net change per calendar year over the contiguous
// range from the earliest to the latest snapshot year. The first year
// with a single snapshot counts its total as growth from zero; empty
// years report 0 without resetting the comparison baseline.
func (s *StatisticsService) Yearly(ctx context.Context, userID int64) ([]YearlyPoint, error) {
	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return []YearlyPoint{}, nil
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ReconciliationDate.Before(snapshots[j].ReconciliationDate)
	})

	byYear := make(map[int][]core.Snapshot)
	for _, snap := range snapshots {
		year := snap.ReconciliationDate.Year()
		byYear[year] = append(byYear[year], snap)
	}

	firstYear := snapshots[0].ReconciliationDate.Year()
	lastYear := snapshots[len(snapshots)-1].ReconciliationDate.Year()

	out := make([]YearlyPoint, 0, lastYear-firstYear+1)
	var previousLast *decimal.Decimal
	for year := firstYear; year <= lastYear; year++ {
		yearSnapshots := byYear[year]
		increase := decimal.Zero

		if len(yearSnapshots) > 0 {
			first := yearSnapshots[0]
			last := yearSnapshots[len(yearSnapshots)-1]

			switch {
			case year == firstYear && len(yearSnapshots) == 1:
				// Single snapshot in the first year: growth from a
				// zero baseline.
				increase = last.TotalAmount
			case year == firstYear:
				increase = last.TotalAmount.Sub(first.TotalAmount)
			default:
				// The pointer survives empty years: later years keep
				// comparing against the last year that had data.
				increase = last.TotalAmount.Sub(*previousLast)
			}
			lastTotal := last.TotalAmount
			previousLast = &lastTotal
		}

		out = append(out, YearlyPoint{Year: strconv.Itoa(year), Increase: increase})
	}
	return out, nil
}

// Maturity lists fixed-term deposits from the latest snapshot maturing
// within the next 365 days, ascending by maturity date.
func (s *StatisticsService) Maturity(ctx context.Context, userID int64) ([]MaturityItem, error) {
	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return []MaturityItem{}, nil
	}
	latestDate := snapshots[0].ReconciliationDate

	deposits, err := s.store.ListDeposits(ctx, userID, latestDate)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}

	var accountIDs []int64
	seen := make(map[int64]bool)
	for _, dep := range deposits {
		if !seen[dep.AccountID] {
			seen[dep.AccountID] = true
			accountIDs = append(accountIDs, dep.AccountID)
		}
	}
	names, err := s.accountNames(ctx, userID, accountIDs)
	if err != nil {
		return nil, err
	}

	today := core.DateOf(s.now())
	out := []MaturityItem{}
	for _, dep := range deposits {
		if !dep.IsFixedTerm() {
			continue
		}
		maturityDate := dep.MaturityDate()
		remaining := today.DaysUntil(maturityDate)
		if remaining < 0 || remaining > 365 {
			continue
		}

		name := names[dep.AccountID]
		if name == "" {
			name = unknownAccountName
		}
		out = append(out, MaturityItem{
			AccountName:   name,
			Amount:        dep.Amount,
			DepositTime:   dep.DepositTime,
			MaturityDate:  maturityDate,
			RemainingDays: remaining,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].MaturityDate.Before(out[j].MaturityDate)
	})
	return out, nil
}

// trendStart resolves a period keyword to the first month of the series.
// Windows include the current month: "6m" spans exactly six months.
func (s *StatisticsService) trendStart(period string, endDate core.Date, snapshots []core.Snapshot) core.Date {
	switch period {
	case "6m":
		return endDate.MonthStart().AddMonths(-5)
	case "1y":
		return endDate.MonthStart().AddMonths(-11)
	case "3y":
		return endDate.MonthStart().AddMonths(-35)
	case "all":
		earliest := snapshots[len(snapshots)-1].ReconciliationDate
		return earliest.MonthStart()
	default:
		return endDate.MonthStart().AddMonths(-11)
	}
}

// monthNotes formats every note-bearing snapshot of a month, ascending
// by date, not just the month's last snapshot.
func monthNotes(snapshots []core.Snapshot) []string {
	withNotes := make([]core.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.Note != nil && strings.TrimSpace(*snap.Note) != "" {
			withNotes = append(withNotes, snap)
		}
	}
	sort.Slice(withNotes, func(i, j int) bool {
		return withNotes[i].ReconciliationDate.Before(withNotes[j].ReconciliationDate)
	})

	notes := make([]string, 0, len(withNotes))
	for _, snap := range withNotes {
		notes = append(notes, snap.ReconciliationDate.String()+": "+*snap.Note)
	}
	return notes
}

func (s *StatisticsService) accountNames(ctx context.Context, userID int64, accountIDs []int64) (map[int64]string, error) {
	accounts, err := s.store.FindAccountsByIDs(ctx, userID, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	names := make(map[int64]string, len(accounts))
	for _, acc := range accounts {
		names[acc.ID] = acc.Name
	}
	return names, nil
}
