package funnel

import "fmt"

// SafeDivide returns 0 when the denominator is 0.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func percentage(numerator, denominator float64) float64 {
	return SafeDivide(numerator, denominator) * 100
}

// RevenueComponents is the revenue contributed by each offer.
type RevenueComponents struct {
	MainProduct float64
	Combo       float64
	OrderBump   float64
	Upsell      float64 // zero unless the funnel has an upsell
}

// Total sums the components.
func (r RevenueComponents) Total() float64 {
	return r.MainProduct + r.Combo + r.OrderBump + r.Upsell
}

// Revenues computes sales x price per offer.
func Revenues(in Input) RevenueComponents {
	r := RevenueComponents{
		MainProduct: float64(in.MainProductSales) * in.MainProductPrice,
		Combo:       float64(in.ComboSales) * in.ComboPrice,
		OrderBump:   float64(in.OrderBumpSales) * in.OrderBumpPrice,
	}
	if in.HasUpsell {
		r.Upsell = float64(in.UpsellSales) * in.UpsellPrice
	}
	return r
}

// TotalSales counts front-end orders: main product plus combo. Order bumps
// and upsells ride on those orders and are not counted again.
func TotalSales(in Input) int {
	return in.MainProductSales + in.ComboSales
}

// Calculate derives the diagnostics for one snapshot. It never fails; every
// zero denominator yields 0.
func Calculate(in Input) Diagnostics {
	totalSales := float64(TotalSales(in))
	revenue := Revenues(in).Total()

	d := Diagnostics{
		TotalRevenue:        revenue,
		SalesPageConversion: percentage(float64(in.CheckoutVisits), float64(in.SalesPageVisits)),
		CheckoutConversion:  percentage(totalSales, float64(in.CheckoutVisits)),
		FinalConversion:     percentage(totalSales, float64(in.SalesPageVisits)),
		OrderBumpRate:       percentage(float64(in.OrderBumpSales), totalSales),
		CurrentROI:          SafeDivide(revenue, in.AdSpend),
		MonthlyGoalProgress: SafeDivide(revenue, in.MonthlyRevenue),
		CurrentCPC:          SafeDivide(in.AdSpend, float64(in.TotalClicks)),
		MaxCPC:              MaxCPC(in),
	}
	d.Messages = buildMessages(d)
	return d
}

// MaxCPC is the highest cost per click that still meets the target ROI:
// (AOV / targetROI) / (salesPageVisits / totalClicks).
func MaxCPC(in Input) float64 {
	if in.TotalClicks == 0 || TotalSales(in) == 0 {
		return 0
	}
	visitsPerClick := SafeDivide(float64(in.SalesPageVisits), float64(in.TotalClicks))
	affordable := SafeDivide(AverageOrderValue(in), in.EffectiveTargetROI())
	return SafeDivide(affordable, visitsPerClick)
}

func buildMessages(d Diagnostics) []Message {
	messages := make([]Message, 0, 5)
	add := func(t MessageType, format string, args ...any) {
		messages = append(messages, Message{Type: t, Message: fmt.Sprintf(format, args...)})
	}

	if d.SalesPageConversion < IdealSalesPageConversion {
		add(MessageWarning, "Sales page conversion is %.2f%%, below the %.0f%% benchmark. Review the offer and page copy.",
			d.SalesPageConversion, IdealSalesPageConversion)
	}
	if d.CheckoutConversion < IdealCheckoutConversion {
		add(MessageWarning, "Checkout conversion is %.2f%%, below the %.0f%% benchmark. Check for friction at checkout.",
			d.CheckoutConversion, IdealCheckoutConversion)
	}
	if d.OrderBumpRate < IdealOrderBumpRate {
		add(MessageWarning, "Order bump take rate is %.2f%%, below the %.0f%% benchmark. Consider a more compelling bump.",
			d.OrderBumpRate, IdealOrderBumpRate)
	}

	// Exactly one ROI message.
	switch {
	case d.CurrentROI < BreakEvenROI:
		add(MessageError, "ROI of %.2fx is below break-even. The campaign is losing money.", d.CurrentROI)
	case d.CurrentROI < HealthyROI:
		add(MessageWarning, "ROI of %.2fx is positive but below the %.1fx target.", d.CurrentROI, HealthyROI)
	default:
		add(MessageSuccess, "ROI of %.2fx meets the %.1fx target.", d.CurrentROI, HealthyROI)
	}

	if d.CurrentCPC > MaxHealthyCPC {
		add(MessageError, "Cost per click of %.2f is above the %.2f ceiling.", d.CurrentCPC, MaxHealthyCPC)
	}

	return messages
}
