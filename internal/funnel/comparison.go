package funnel

// Row names shared by the comparison chart and the exported report
const (
	RowSalesPageConversion = "Sales Page Conversion"
	RowCheckoutConversion  = "Checkout Conversion"
	RowROI                 = "ROI"
	RowOrderBumpRate       = "Order Bump Rate"
)

// Revenue source names
const (
	SourceMainProduct = "Main Product"
	SourceCombo       = "Combo"
	SourceOrderBump   = "Order Bump"
	SourceUpsell      = "Upsell"
)

// ComparisonRows lines up actual metrics against their benchmarks. ROI is
// expressed as a percentage. The order bump row appears only for funnels
// with an upsell. A nil input yields an empty slice.
func ComparisonRows(in *Input) []ComparisonRow {
	if in == nil {
		return []ComparisonRow{}
	}

	d := Calculate(*in)
	rows := []ComparisonRow{
		{Name: RowSalesPageConversion, Actual: d.SalesPageConversion, Ideal: IdealSalesPageConversion},
		{Name: RowCheckoutConversion, Actual: d.CheckoutConversion, Ideal: IdealCheckoutConversion},
		{Name: RowROI, Actual: d.CurrentROI * 100, Ideal: IdealROIPercent},
	}
	if in.HasUpsell {
		rows = append(rows, ComparisonRow{Name: RowOrderBumpRate, Actual: d.OrderBumpRate, Ideal: IdealOrderBumpRate})
	}
	return rows
}

// RevenueBreakdown splits total revenue by source. Upsell is listed only
// when the funnel has one.
func RevenueBreakdown(in Input) []RevenueBreakdownItem {
	r := Revenues(in)
	total := r.Total()

	item := func(name string, value float64) RevenueBreakdownItem {
		return RevenueBreakdownItem{Name: name, Value: value, Percentage: percentage(value, total)}
	}

	items := []RevenueBreakdownItem{
		item(SourceMainProduct, r.MainProduct),
		item(SourceCombo, r.Combo),
		item(SourceOrderBump, r.OrderBump),
	}
	if in.HasUpsell {
		items = append(items, item(SourceUpsell, r.Upsell))
	}
	return items
}
