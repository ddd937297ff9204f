package order

import "restaurant-ops/internal/domain"

type edge struct {
	from domain.OrderStatus
	to   domain.OrderStatus
}

// transitions is the full guard table: which status changes exist at all,
// and which roles may perform each one.
var transitions = map[edge][]domain.Role{
	{domain.StatusPending, domain.StatusPreparing}:   {domain.RoleAdmin, domain.RoleManager, domain.RoleKitchen},
	{domain.StatusPending, domain.StatusCancelled}:   {domain.RoleAdmin, domain.RoleManager, domain.RoleAttendant},
	{domain.StatusPreparing, domain.StatusReady}:     {domain.RoleAdmin, domain.RoleManager, domain.RoleKitchen},
	{domain.StatusPreparing, domain.StatusCancelled}: {domain.RoleAdmin, domain.RoleManager},
	{domain.StatusReady, domain.StatusDelivered}:     {domain.RoleAdmin, domain.RoleManager, domain.RoleAttendant},
}

// ValidateTransition decides whether role may move an order from one status
// to another. Checks run in order: terminal state, edge existence, role gate.
func ValidateTransition(from, to domain.OrderStatus, role domain.Role) error {
	if from.Terminal() {
		return &TerminalError{Status: from}
	}
	allowed, ok := transitions[edge{from, to}]
	if !ok {
		return &InvalidTransitionError{From: from, To: to}
	}
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return &ForbiddenError{Role: role, From: from, To: to}
}
