package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/models"
)

func TestPropertyIDDeterministic(t *testing.T) {
	a := PropertyID("NP7 5AB", "12", "HIGH STREET")
	b := PropertyID("NP7 5AB", "12", "HIGH STREET")

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", a)
}

func TestPropertyIDNoCollisions(t *testing.T) {
	seen := make(map[string]string)
	postcodes := []string{"NP7 5AB", "NP7 5AD", "NP15 1AA", "CF14 9AB", ""}
	for _, pc := range postcodes {
		for house := 0; house < 25; house++ {
			for _, street := range []string{"HIGH STREET", "CHURCH ROAD", "", "MILL LANE", "CROSS STREET", "FROGMORE STREET", "MONK STREET", "PARK ROAD", "LION STREET", "BRECON ROAD"} {
				key := fmt.Sprintf("%s|%d|%s", pc, house, street)
				id := PropertyID(pc, fmt.Sprint(house), street)
				if prev, dup := seen[id]; dup {
					t.Fatalf("collision between %q and %q", prev, key)
				}
				seen[id] = key
			}
		}
	}
	assert.GreaterOrEqual(t, len(seen), 1000)
}

func TestPropertyIDSeparatesFields(t *testing.T) {
	assert.NotEqual(t, PropertyID("AB", "C", ""), PropertyID("A", "BC", ""))
	assert.NotEqual(t, PropertyID("", "", "X"), PropertyID("X", "", ""))
}

func TestNewIdentityHasherMissingColumns(t *testing.T) {
	_, err := NewIdentityHasher([]string{"postcode", "price_paid"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInput)
	assert.Contains(t, err.Error(), "paon")
	assert.Contains(t, err.Error(), "street")
}

func TestIdentityHasherAssignDoesNotMutate(t *testing.T) {
	h, err := NewIdentityHasher([]string{"postcode", "paon", "street"})
	require.NoError(t, err)

	in := []models.SaleRecord{
		{Transaction: models.Transaction{Postcode: "NP7 5AB", PAON: "1", Street: "HIGH STREET"}},
		{Transaction: models.Transaction{Postcode: "NP7 5AB", PAON: "1", Street: "HIGH STREET"}},
		{Transaction: models.Transaction{Postcode: "NP7 5AB", PAON: "", Street: ""}},
	}
	out := h.Assign(in)

	require.Len(t, out, 3)
	assert.Empty(t, in[0].PropertyID, "input must not be mutated")
	assert.Equal(t, out[0].PropertyID, out[1].PropertyID)
	assert.NotEqual(t, out[0].PropertyID, out[2].PropertyID)
	assert.Equal(t, "NP7 5AB", out[0].Postcode)
}

func TestIdentityHasherReadsValidatedColumns(t *testing.T) {
	tbl := &models.Table{
		Columns: []string{"unique_id", "price_paid", "deed_date", "postcode", "paon", "street", "saon"},
		Rows:    [][]string{{"{X}", "1", "2001-01-01", "np7 5ab", "12", "HIGH  STREET", "FLAT 1"}},
	}
	h, err := NewIdentityHasher(tbl.Columns)
	require.NoError(t, err)

	txs, err := NewCleaner(newTestLogger(), true).CleanTransactions(RawTransactions(tbl))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	out := h.Assign([]models.SaleRecord{{Transaction: txs[0]}})
	assert.Equal(t, PropertyID("NP7 5AB", "12", "HIGH STREET"), out[0].PropertyID)
	assert.Equal(t, PropertyID(txs[0].Postcode, txs[0].PAON, txs[0].Street), out[0].PropertyID)
}
