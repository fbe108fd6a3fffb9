package core

type StockStatus string

const (
	OutOfStock StockStatus = "OUT_OF_STOCK"
	LowStock   StockStatus = "LOW_STOCK"
	Overstock  StockStatus = "OVERSTOCK"
	InStock    StockStatus = "IN_STOCK"
)

// overstockHeadroom: a record is overstocked once it is within MaxStock/10 of
// the ceiling, i.e. at 90% or more.
const overstockHeadroom = 10

// Classification is the derived view of an allocation record.
type Classification struct {
	Available int64       `json:"available"`
	Status    StockStatus `json:"status"`
}

// Classify derives available quantity and stock status. The checks run in a
// fixed order: an empty record is OUT_OF_STOCK even when ReorderPoint is zero.
// A MaxStock of zero or less means no ceiling is configured.
func Classify(r AllocationRecord) Classification {
	c := Classification{Available: r.Available()}
	switch {
	case r.AllocatedQuantity == 0:
		c.Status = OutOfStock
	case r.AllocatedQuantity <= r.ReorderPoint:
		c.Status = LowStock
	case r.MaxStock > 0 && r.AllocatedQuantity >= r.MaxStock-r.MaxStock/overstockHeadroom:
		c.Status = Overstock
	default:
		c.Status = InStock
	}
	return c
}
