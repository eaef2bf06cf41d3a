package session

import "github.com/tradezone/marketplace/pkg/moderation"

type Area string

const (
	AreaGuestDashboard Area = "guest_dashboard"
	AreaMarketplace    Area = "marketplace"
	AreaLogin          Area = "login"
	AreaRegister       Area = "register"
	AreaAdminLogin     Area = "admin_login"
	AreaAdminRegister  Area = "admin_register"

	AreaCart          Area = "cart"
	AreaCheckout      Area = "checkout"
	AreaConfirmation  Area = "order_confirmation"
	AreaUserDashboard Area = "user_dashboard"
	AreaUserOrders    Area = "user_orders"

	AreaAdminDashboard Area = "admin_dashboard"
	AreaAdminOrders    Area = "admin_orders"
)

var areaRoles = map[Area]moderation.Role{
	AreaCart:           moderation.RoleUser,
	AreaCheckout:       moderation.RoleUser,
	AreaConfirmation:   moderation.RoleUser,
	AreaUserDashboard:  moderation.RoleUser,
	AreaUserOrders:     moderation.RoleUser,
	AreaAdminDashboard: moderation.RoleAdmin,
	AreaAdminOrders:    moderation.RoleAdmin,
}

func homeFor(r moderation.Role) Area {
	switch r {
	case moderation.RoleAdmin:
		return AreaAdminDashboard
	case moderation.RoleUser:
		return AreaUserDashboard
	default:
		return AreaGuestDashboard
	}
}

// Can reports whether the current session may open area. Role-gated areas
// are closed while the session is still loading.
func (s *Store) Can(area Area) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	required, gated := areaRoles[area]
	if !gated {
		return true
	}
	if s.status != StatusReady {
		return false
	}
	return s.cur.Role == required
}

// Home is the landing area for the current role.
func (s *Store) Home() Area {
	return homeFor(s.Current().Role)
}

// Resolve returns area when it is reachable and the guest landing otherwise.
func (s *Store) Resolve(area Area) Area {
	if s.Can(area) {
		return area
	}
	return AreaGuestDashboard
}
