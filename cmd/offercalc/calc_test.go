package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfin/offer-engine/internal/model"
	"github.com/sellerfin/offer-engine/internal/property"
	"github.com/sellerfin/offer-engine/internal/store"
)

func TestAmountFlags_Property(t *testing.T) {
	p, err := amountFlags{
		price: "$87,000", rent: "1150", tax: "95",
		insurance: "80", hoa: "0", other: "0.15k",
	}.property()
	require.NoError(t, err)

	assert.Equal(t, "87000", p.ListedPrice.String())
	assert.Equal(t, "1150", p.MonthlyRent.String())
	assert.Equal(t, "95", p.MonthlyPropertyTax.String())
	assert.Equal(t, "80", p.MonthlyInsurance.String())
	assert.True(t, p.MonthlyHOAFee.IsZero())
	assert.Equal(t, "150", p.MonthlyOtherFees.String())
}

func TestAmountFlags_NamesBadFlag(t *testing.T) {
	_, err := amountFlags{
		price: "87000", rent: "lots", tax: "0",
		insurance: "0", hoa: "0", other: "0",
	}.property()
	require.Error(t, err)
	assert.True(t, errors.Is(err, property.ErrInvalidAmount))
	assert.Contains(t, err.Error(), "--rent")
}

func TestCalcSave_WritesHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	rootCmd.SetArgs([]string{
		"calc", "--price", "87k", "--rent", "1150", "--tax", "95",
		"--insurance", "80", "--other", "150",
		"--save", "--address", "12 Oak Ave", "--db", dbPath, "--json",
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flagSave, flagAddress, flagDB, flagJSON = false, "", "", false
	})
	require.NoError(t, rootCmd.Execute())

	st, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close()

	analyses, err := st.ListAnalyses(context.Background(), store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "12 Oak Ave", analyses[0].Address)
	assert.Len(t, analyses[0].Offers, 3)
	assert.Equal(t, model.NotViable, analyses[0].BestViability)
}
