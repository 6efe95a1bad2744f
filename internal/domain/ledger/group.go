package ledger

import (
	"fmt"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// Group is a named storage zone that partitions the ledger
type Group struct {
	Key   string `mapstructure:"key" validate:"required,max=40"`
	Label string `mapstructure:"label" validate:"required"`
}

// UnassignedGroup receives balances migrated from the legacy code-only ledger
const UnassignedGroup = "sin_carpeta"

// DefaultGroups returns the storage zones used when none are configured
func DefaultGroups() []Group {
	return []Group{
		{Key: "refrigerado", Label: "Refrigerado"},
		{Key: "congelado", Label: "Congelado"},
		{Key: "seco", Label: "Seco"},
		{Key: "almacen_central", Label: "Almacén central"},
		{Key: "fruta_verdura", Label: "Fruta y verdura"},
		{Key: "pollo_carne", Label: "Pollo y carne"},
	}
}

// Catalog is the set of known groups
type Catalog struct {
	groups []Group
	byKey  map[string]Group
}

// NewCatalog builds a group catalog; keys must be unique and non-empty
func NewCatalog(groups []Group) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]Group, len(groups))}
	for _, g := range groups {
		if g.Key == "" {
			return nil, shared.NewValidationError("Group key cannot be empty")
		}
		if _, dup := c.byKey[g.Key]; dup {
			return nil, shared.NewValidationError(fmt.Sprintf("Duplicate group key: %s", g.Key))
		}
		c.byKey[g.Key] = g
		c.groups = append(c.groups, g)
	}
	return c, nil
}

// All returns the groups in configured order
func (c *Catalog) All() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Validate returns a validation error unless key names a known group
func (c *Catalog) Validate(key string) error {
	if _, ok := c.byKey[key]; !ok {
		return shared.NewValidationError(fmt.Sprintf("Unknown group: %s", key))
	}
	return nil
}

// Label returns the display label of a group, or the key itself when unknown
func (c *Catalog) Label(key string) string {
	if g, ok := c.byKey[key]; ok {
		return g.Label
	}
	return key
}
