package services

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"property-pipeline/models"
)

// identitySeparator keeps ("AB", "C") and ("A", "BC") apart.
const identitySeparator = "\x1f"

// identityColumns are the price-paid columns RawTransactions maps onto
// Postcode, PAON and Street.
var identityColumns = []string{"postcode", "paon", "street"}

// PropertyID returns the 32-character hex md5 digest of the three fields.
// Missing values must be passed as empty strings.
func PropertyID(postcode, house, street string) string {
	sum := md5.Sum([]byte(strings.Join([]string{postcode, house, street}, identitySeparator)))
	return hex.EncodeToString(sum[:])
}

// IdentityHasher assigns property identities to merged sale records.
type IdentityHasher struct{}

// NewIdentityHasher checks that schema carries the postcode, paon and street
// columns.
func NewIdentityHasher(schema []string) (*IdentityHasher, error) {
	have := make(map[string]struct{}, len(schema))
	for _, c := range schema {
		have[c] = struct{}{}
	}

	var missing []string
	for _, c := range identityColumns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: identity columns missing from schema: %s",
			ErrInput, strings.Join(missing, ", "))
	}

	return &IdentityHasher{}, nil
}

// Assign returns a copy of records with PropertyID set on every row.
func (h *IdentityHasher) Assign(records []models.SaleRecord) []models.SaleRecord {
	out := make([]models.SaleRecord, len(records))
	for i, r := range records {
		r.PropertyID = PropertyID(r.Postcode, r.PAON, r.Street)
		out[i] = r
	}
	return out
}
