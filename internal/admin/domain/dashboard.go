package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	tabledomain "github.com/dmehra2102/restaurant-order-system/internal/table/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Period string

const (
	PeriodDay  Period = "day"
	PeriodHour Period = "hour"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodHour:
		return PeriodHour, nil
	}
	return "", fmt.Errorf("unknown period %q: %w", s, apperr.ErrValidation)
}

// Bucket formats t in UTC as YYYY-MM-DD or YYYY-MM-DDTHH.
func (p Period) Bucket(t time.Time) string {
	if p == PeriodHour {
		return t.UTC().Format("2006-01-02T15")
	}
	return t.UTC().Format("2006-01-02")
}

// StartOfDay is midnight UTC of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type DashboardMetrics struct {
	TotalOrders        int   `json:"totalOrders"`
	CompletedOrders    int   `json:"completedOrders"`
	PendingOrders      int   `json:"pendingOrders"`
	TotalRevenue       int64 `json:"totalRevenue"`
	OccupiedTables     int   `json:"occupiedTables"`
	TotalTables        int   `json:"totalTables"`
	AvailableTables    int   `json:"availableTables"`
	AverageTimeMinutes int   `json:"averageTimeMinutes"`
}

// NewDashboardMetrics summarizes the orders created today and the current
// table floor. Pending counts every order that is not completed.
func NewDashboardMetrics(today []orderdomain.Order, totalTables, occupiedTables int) DashboardMetrics {
	m := DashboardMetrics{
		TotalOrders:     len(today),
		TotalTables:     totalTables,
		OccupiedTables:  occupiedTables,
		AvailableTables: totalTables - occupiedTables,
	}
	for _, o := range today {
		if o.Status == orderdomain.StatusCompleted {
			m.CompletedOrders++
		}
		m.TotalRevenue += o.TotalCents()
	}
	m.PendingOrders = m.TotalOrders - m.CompletedOrders
	m.AverageTimeMinutes = AverageCompletionMinutes(today)
	return m
}

// AverageCompletionMinutes is the rounded mean of completed-started over the
// orders that carry both stamps, or 0 when none do.
func AverageCompletionMinutes(orders []orderdomain.Order) int {
	var (
		sum time.Duration
		n   int
	)
	for _, o := range orders {
		if o.StartedAt == nil || o.CompletedAt == nil {
			continue
		}
		sum += o.CompletedAt.Sub(*o.StartedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(sum.Minutes() / float64(n)))
}

type RevenuePoint struct {
	Period  string `json:"period"`
	Revenue int64  `json:"revenue"`
}

// Revenue groups the order totals into period buckets keyed by creation
// time, sorted ascending.
func Revenue(orders []orderdomain.Order, p Period) []RevenuePoint {
	buckets := map[string]int64{}
	for _, o := range orders {
		buckets[p.Bucket(o.CreatedAt)] += o.TotalCents()
	}
	out := make([]RevenuePoint, 0, len(buckets))
	for k, v := range buckets {
		out = append(out, RevenuePoint{Period: k, Revenue: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

type TopItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Revenue  int64  `json:"revenue"`
}

// TableDetail is one table with the orders placed at it, newest first.
type TableDetail struct {
	tabledomain.Table
	Orders []orderdomain.Order `json:"orders"`
}
