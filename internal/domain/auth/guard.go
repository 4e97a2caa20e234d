package auth

// RequireAdmin allows only admins. Listing all orders, changing order status,
// viewing stats and every menu or coupon mutation go through it.
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return ErrAccessDenied
	}
	return nil
}

// CanReadOrder allows the order's owner and any admin.
func CanReadOrder(a Actor, ownerID string) error {
	if a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID) {
		return nil
	}
	return ErrAccessDenied
}

// CanRecordPayment allows only the order's owner. Admins are denied here even
// though they may change the order status.
func CanRecordPayment(a Actor, ownerID string) error {
	if a.UserID != "" && a.UserID == ownerID {
		return nil
	}
	return ErrAccessDenied
}
