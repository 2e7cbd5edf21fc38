package funnel

// AverageOrderValue is revenue per front-end order.
func AverageOrderValue(in Input) float64 {
	return SafeDivide(Revenues(in).Total(), float64(TotalSales(in)))
}

// CAC is ad spend per front-end order.
func CAC(in Input) float64 {
	return SafeDivide(in.AdSpend, float64(TotalSales(in)))
}

// LTV estimates lifetime value from AOV. It never drops below LTVFloor.
func LTV(aov float64) float64 {
	if aov <= 0 {
		return LTVFloor
	}
	return max(aov*LTVMultiplier, LTVFloor)
}

// Finance computes AOV, CAC, LTV and the LTV:CAC ratio.
func Finance(in Input) FinanceMetrics {
	aov := AverageOrderValue(in)
	cac := CAC(in)
	ltv := LTV(aov)
	return FinanceMetrics{
		AverageOrderValue: aov,
		CAC:               cac,
		LTV:               ltv,
		LTVToCAC:          SafeDivide(ltv, cac),
	}
}
