package domain

import "fmt"

// Role is the marketplace role carried by an authenticated caller.
type Role string

const (
	RoleWholesaler Role = "wholesaler"
	RoleVendor     Role = "vendor"
	RoleAdmin      Role = "admin"
)

// ParseRole converts raw input into a known Role.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleWholesaler, RoleVendor, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrAuthorization, raw)
}

// Actor is the caller an operation is performed for.
type Actor struct {
	ID   string
	Role Role
}

// CanView reports whether the actor is a party to the order or an admin.
func (a Actor) CanView(o Order) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleWholesaler:
		return o.WholesalerID == a.ID
	case RoleVendor:
		return o.VendorID == a.ID
	}
	return false
}

// CanUpdateStatus reports whether the actor may move the order through its
// lifecycle: the order's vendor or an admin.
func (a Actor) CanUpdateStatus(o Order) bool {
	return a.Role == RoleAdmin || (a.Role == RoleVendor && o.VendorID == a.ID)
}

// CanPay reports whether the actor is the wholesaler who placed the order.
func (a Actor) CanPay(o Order) bool {
	return a.Role == RoleWholesaler && o.WholesalerID == a.ID
}

// Authorize returns ErrAuthorization unless allowed.
func Authorize(allowed bool, action string) error {
	if allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrAuthorization, action)
}
