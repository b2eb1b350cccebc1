package allocation

import "errors"

// ErrSkuNotFound is returned by InventoryClient implementations when the
// inventory service does not know the SKU at all.
var ErrSkuNotFound = errors.New("allocation: sku not found")

// Sentinel assignment labels rendered into notes. These are user-visible
// Spanish strings and must not be translated.
const (
	// LabelUnassigned marks a line whose SKU the inventory service does
	// not know (or a line with no seller SKU at all).
	LabelUnassigned = "Sin asignación"
	// LabelOutOfStock marks a line whose SKU exists but has no stock left
	// in any resource.
	LabelOutOfStock = "Sin stock"
)
