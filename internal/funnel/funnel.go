// Package funnel derives diagnostics from a sales funnel snapshot. Every
// revenue, conversion and acquisition formula used anywhere in the
// application lives here.
package funnel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"insights/internal/timeframe"
)

const (
	// DefaultTargetROI applies when a snapshot has no positive target.
	DefaultTargetROI = 1.5

	IdealSalesPageConversion = 40.0
	IdealCheckoutConversion  = 40.0
	IdealOrderBumpRate       = 30.0
	IdealROIPercent          = 150.0

	BreakEvenROI  = 1.0
	HealthyROI    = 1.5
	MaxHealthyCPC = 2.0

	LTVMultiplier = 1.5
	LTVFloor      = 100.0
)

// ErrInvalidInput is returned by Validate for submissions with negative fields.
var ErrInvalidInput = errors.New("invalid funnel input")

// Input is one snapshot of user-entered funnel data.
type Input struct {
	TotalClicks     int `json:"totalClicks"`
	SalesPageVisits int `json:"salesPageVisits"`
	CheckoutVisits  int `json:"checkoutVisits"`

	MainProductSales int `json:"mainProductSales"`
	ComboSales       int `json:"comboSales"`
	OrderBumpSales   int `json:"orderBumpSales"`
	UpsellSales      int `json:"upsellSales"`

	MainProductPrice float64 `json:"mainProductPrice"`
	ComboPrice       float64 `json:"comboPrice"`
	OrderBumpPrice   float64 `json:"orderBumpPrice"`
	UpsellPrice      float64 `json:"upsellPrice"`
	HasUpsell        bool    `json:"hasUpsell"`

	AdSpend        float64 `json:"adSpend"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
	TargetROI      float64 `json:"targetROI"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type inputAlias Input

type inputJSON struct {
	*inputAlias
	StartDate *string `json:"startDate,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
}

// MarshalJSON writes dates as RFC3339 strings.
func (in Input) MarshalJSON() ([]byte, error) {
	out := inputJSON{inputAlias: (*inputAlias)(&in)}
	if in.StartDate != nil {
		s := timeframe.FormatDate(*in.StartDate)
		out.StartDate = &s
	}
	if in.EndDate != nil {
		s := timeframe.FormatDate(*in.EndDate)
		out.EndDate = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any ISO-8601 date layout for the period boundaries.
// Empty strings and nulls leave the boundary unset.
func (in *Input) UnmarshalJSON(data []byte) error {
	aux := inputJSON{inputAlias: (*inputAlias)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	in.StartDate = nil
	in.EndDate = nil
	if aux.StartDate != nil {
		if in.StartDate, err = timeframe.ParseOptionalDate(*aux.StartDate); err != nil {
			return fmt.Errorf("startDate: %w", err)
		}
	}
	if aux.EndDate != nil {
		if in.EndDate, err = timeframe.ParseOptionalDate(*aux.EndDate); err != nil {
			return fmt.Errorf("endDate: %w", err)
		}
	}
	return nil
}

// Normalize fills defaults once at the boundary.
func (in Input) Normalize() Input {
	if in.TargetROI <= 0 {
		in.TargetROI = DefaultTargetROI
	}
	return in
}

// EffectiveTargetROI is TargetROI, or DefaultTargetROI when unset.
func (in Input) EffectiveTargetROI() float64 {
	if in.TargetROI <= 0 {
		return DefaultTargetROI
	}
	return in.TargetROI
}

// Period returns the snapshot's analysis window.
func (in Input) Period() *timeframe.Period {
	return &timeframe.Period{Start: in.StartDate, End: in.EndDate}
}

// Validate reports every negative field and an inverted period.
func (in Input) Validate() error {
	var problems []string
	check := func(name string, v float64) {
		if v < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}

	check("totalClicks", float64(in.TotalClicks))
	check("salesPageVisits", float64(in.SalesPageVisits))
	check("checkoutVisits", float64(in.CheckoutVisits))
	check("mainProductSales", float64(in.MainProductSales))
	check("comboSales", float64(in.ComboSales))
	check("orderBumpSales", float64(in.OrderBumpSales))
	check("upsellSales", float64(in.UpsellSales))
	check("mainProductPrice", in.MainProductPrice)
	check("comboPrice", in.ComboPrice)
	check("orderBumpPrice", in.OrderBumpPrice)
	check("upsellPrice", in.UpsellPrice)
	check("adSpend", in.AdSpend)
	check("monthlyRevenue", in.MonthlyRevenue)
	check("targetROI", in.TargetROI)

	if in.StartDate != nil && in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		problems = append(problems, "startDate must not be after endDate")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// MessageType classifies a diagnostic message
type MessageType string

const (
	MessageSuccess MessageType = "success"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
)

// Message is one diagnostic statement
type Message struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// Diagnostics is the derived output of one calculation.
type Diagnostics struct {
	TotalRevenue        float64   `json:"totalRevenue"`
	SalesPageConversion float64   `json:"salesPageConversion"`
	CheckoutConversion  float64   `json:"checkoutConversion"`
	FinalConversion     float64   `json:"finalConversion"`
	OrderBumpRate       float64   `json:"orderBumpRate"`
	CurrentROI          float64   `json:"currentROI"`
	MonthlyGoalProgress float64   `json:"monthlyGoalProgress"`
	CurrentCPC          float64   `json:"currentCPC"`
	MaxCPC              float64   `json:"maxCPC"`
	Messages            []Message `json:"messages"`
}

// ComparisonRow pairs an actual metric with its benchmark.
type ComparisonRow struct {
	Name   string  `json:"name"`
	Actual float64 `json:"actual"`
	Ideal  float64 `json:"ideal"`
}

// RevenueBreakdownItem is one revenue source and its share of the total.
type RevenueBreakdownItem struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// FinanceMetrics holds customer acquisition economics.
type FinanceMetrics struct {
	AverageOrderValue float64 `json:"averageOrderValue"`
	CAC               float64 `json:"cac"`
	LTV               float64 `json:"ltv"`
	LTVToCAC          float64 `json:"ltvToCac"`
}
