package http

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

type (
	accountDistributionDTO struct {
		AccountID   int64           `json:"accountId"`
		AccountName string          `json:"accountName"`
		Amount      decimal.Decimal `json:"amount"`
		Percentage  float64         `json:"percentage"`
	}

	monthlyStatisticsDTO struct {
		Month        string                   `json:"month"`
		TotalAmount  decimal.Decimal          `json:"totalAmount"`
		Distribution []accountDistributionDTO `json:"distribution"`
	}

	trendPointDTO struct {
		Month  string          `json:"month"`
		Amount decimal.Decimal `json:"amount"`
		Notes  []string        `json:"notes"`
	}

	trendStatisticsDTO struct {
		Period string          `json:"period"`
		Data   []trendPointDTO `json:"data"`
	}

	accountSeriesDTO struct {
		AccountID   int64             `json:"accountId"`
		AccountName string            `json:"accountName"`
		Amounts     []decimal.Decimal `json:"amounts"`
	}

	accountTrendDTO struct {
		Period string             `json:"period"`
		Months []string           `json:"months"`
		Series []accountSeriesDTO `json:"series"`
	}

	yearlyPointDTO struct {
		Year     string          `json:"year"`
		Increase decimal.Decimal `json:"increase"`
	}

	maturityItemDTO struct {
		AccountName   string          `json:"accountName"`
		Amount        decimal.Decimal `json:"amount"`
		DepositTime   core.Date       `json:"depositTime"`
		MaturityDate  core.Date       `json:"maturityDate"`
		RemainingDays int             `json:"remainingDays"`
	}
)

func periodParam(r *http.Request) string {
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	switch period {
	case "6m", "1y", "3y", "all":
		return period
	default:
		return "1y"
	}
}

func (s *Server) handleMonthlyStatistics(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if !monthPattern.MatchString(month) {
		writeBadRequest(w, "invalid month, want YYYY-MM")
		return
	}

	stats, err := s.statistics.Monthly(r.Context(), s.userID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := monthlyStatisticsDTO{
		Month:        stats.Month,
		TotalAmount:  stats.TotalAmount,
		Distribution: []accountDistributionDTO{},
	}
	for _, d := range stats.Distribution {
		out.Distribution = append(out.Distribution, accountDistributionDTO{
			AccountID:   d.AccountID,
			AccountName: d.AccountName,
			Amount:      d.Amount,
			Percentage:  d.Percentage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrendStatistics(w http.ResponseWriter, r *http.Request) {
	trend, err := s.statistics.Trend(r.Context(), s.userID(r), periodParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := trendStatisticsDTO{Period: trend.Period, Data: []trendPointDTO{}}
	for _, point := range trend.Data {
		out.Data = append(out.Data, trendPointDTO{
			Month:  point.Month,
			Amount: point.Amount,
			Notes:  point.Notes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccountTrendStatistics(w http.ResponseWriter, r *http.Request) {
	trend, err := s.statistics.AccountTrend(r.Context(), s.userID(r), periodParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := accountTrendDTO{Period: trend.Period, Months: trend.Months, Series: []accountSeriesDTO{}}
	for _, series := range trend.Series {
		out.Series = append(out.Series, accountSeriesDTO{
			AccountID:   series.AccountID,
			AccountName: series.AccountName,
			Amounts:     series.Amounts,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleYearlyStatistics(w http.ResponseWriter, r *http.Request) {
	series, err := s.statistics.Yearly(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]yearlyPointDTO, 0, len(series))
	for _, point := range series {
		out = append(out, yearlyPointDTO{Year: point.Year, Increase: point.Increase})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMaturityStatistics(w http.ResponseWriter, r *http.Request) {
	items, err := s.statistics.Maturity(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]maturityItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, maturityItemDTO{
			AccountName:   item.AccountName,
			Amount:        item.Amount,
			DepositTime:   item.DepositTime,
			MaturityDate:  item.MaturityDate,
			RemainingDays: item.RemainingDays,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
