package reseller

import "github.com/xraph/reseller/id"

// ID is the primary identifier type for all reseller back-office entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
