package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/funnel"
)

func TestParseInput(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		in, err := parseInput([]byte(`{
			"salesPageVisits": 1000,
			"checkoutVisits": 450,
			"mainProductSales": 200,
			"mainProductPrice": 100,
			"adSpend": 2000,
			"totalClicks": 2000,
			"startDate": "2024-03-01"
		}`), ".json")
		require.NoError(t, err)

		assert.Equal(t, 1000, in.SalesPageVisits)
		assert.Equal(t, funnel.DefaultTargetROI, in.TargetROI)
		require.NotNil(t, in.StartDate)
		assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *in.StartDate)
		assert.Nil(t, in.EndDate)
	})

	t.Run("yaml", func(t *testing.T) {
		in, err := parseInput([]byte(`
salesPageVisits: 1000
checkoutVisits: 450
mainProductSales: 200
comboSales: 50
mainProductPrice: 100
comboPrice: 150
hasUpsell: true
targetROI: 2
startDate: 2024-03-01
endDate: "2024-03-31T00:00:00Z"
`), ".yaml")
		require.NoError(t, err)

		assert.Equal(t, 50, in.ComboSales)
		assert.True(t, in.HasUpsell)
		assert.Equal(t, 2.0, in.TargetROI)
		require.NotNil(t, in.StartDate)
		require.NotNil(t, in.EndDate)
		assert.Equal(t, 30*24*time.Hour, in.EndDate.Sub(*in.StartDate))
	})

	t.Run("negative values are rejected", func(t *testing.T) {
		_, err := parseInput([]byte(`{"adSpend": -10}`), ".json")
		assert.ErrorIs(t, err, funnel.ErrInvalidInput)

		_, err = parseInput([]byte("targetROI: -1\n"), ".yaml")
		assert.ErrorIs(t, err, funnel.ErrInvalidInput)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := parseInput([]byte("adSpend: [1, 2"), ".yml")
		assert.Error(t, err)
	})
}
