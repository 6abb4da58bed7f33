package order

// CheckStock decides whether a requested quantity can be satisfied from the
// available stock. It is a pure function with no side effects: callers must
// pass a freshly read stock value, never a cached snapshot.
//
// A request is valid iff 0 < requested <= available. Equality is accepted:
// stock may legitimately reach exactly zero.
func CheckStock(productID int64, requested, available int) error {
	if requested <= 0 {
		return ErrInvalidQuantity
	}
	if requested > available {
		return &InsufficientStockError{
			ProductID: productID,
			Requested: requested,
			Available: available,
		}
	}
	return nil
}
