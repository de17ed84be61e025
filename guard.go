package reseller

import (
	"github.com/xraph/reseller/id"
)

// ValidateID is the shared identifier guard. It accepts only a TypeID
// string carrying the expected prefix and reports anything else as a
// ValidationError on field. No operation touches the store before its
// identifiers pass this check.
func ValidateID(field, raw string, prefix id.Prefix) (id.ID, error) {
	parsed, err := id.ParseWithPrefix(raw, prefix)
	if err != nil {
		return id.Nil, invalid(field, "must be a %s_ identifier", prefix)
	}
	return parsed, nil
}

// requireID checks an already-typed identifier against prefix.
func requireID(field string, v id.ID, prefix id.Prefix) error {
	if !v.HasPrefix(prefix) {
		return invalid(field, "must be a %s_ identifier", prefix)
	}
	return nil
}
