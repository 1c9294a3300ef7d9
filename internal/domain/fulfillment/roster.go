package fulfillment

import (
	"fmt"
	"sort"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Role is a department an actor belongs to
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleSales      Role = "sales"
	RoleProduction Role = "production"
	RoleWarehouse  Role = "warehouse"
)

type idSet map[int64]struct{}

func newIDSet(ids []int64) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Roster is the static permission model: who belongs to which department,
// and which categories each production actor handles.
type Roster struct {
	superAdminID int64
	sales        idSet
	warehouse    idSet
	production   map[Category]idSet
}

// NewRoster builds a roster from configured id lists
func NewRoster(superAdminID int64, sales, warehouse []int64, production map[Category][]int64) *Roster {
	r := &Roster{
		superAdminID: superAdminID,
		sales:        newIDSet(sales),
		warehouse:    newIDSet(warehouse),
		production:   make(map[Category]idSet, len(production)),
	}
	for cat, ids := range production {
		r.production[cat] = newIDSet(ids)
	}
	return r
}

// IsSuperAdmin reports whether the actor has unconditional access
func (r *Roster) IsSuperAdmin(actorID int64) bool {
	return actorID != 0 && actorID == r.superAdminID
}

// HasPermission checks role membership. For production, a nil category
// degrades to "member of any production pool", which is only suitable for
// menu display; real transitions always pass the sub-order's category.
func (r *Roster) HasPermission(actorID int64, role Role, category *Category) bool {
	if r.IsSuperAdmin(actorID) {
		return true
	}
	switch role {
	case RoleSales:
		return r.sales.has(actorID)
	case RoleWarehouse:
		return r.warehouse.has(actorID)
	case RoleProduction:
		if category != nil {
			pool, ok := r.production[*category]
			return ok && pool.has(actorID)
		}
		for _, pool := range r.production {
			if pool.has(actorID) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsAdmin reports whether the actor belongs to any department
func (r *Roster) IsAdmin(actorID int64) bool {
	return r.IsSuperAdmin(actorID) ||
		r.HasPermission(actorID, RoleSales, nil) ||
		r.HasPermission(actorID, RoleProduction, nil) ||
		r.HasPermission(actorID, RoleWarehouse, nil)
}

// RoleForTransition returns the department that may apply target
func RoleForTransition(target Status) (Role, bool) {
	switch target {
	case StatusApproved, StatusRejected:
		return RoleSales, true
	case StatusProductionReceived, StatusProductionStarted, StatusSentToWarehouse:
		return RoleProduction, true
	case StatusWarehouseReceived:
		return RoleWarehouse, true
	default:
		return "", false
	}
}

// Authorize fails with an authorization error unless actorID may move an
// order of the given category to target.
func (r *Roster) Authorize(actorID int64, target Status, category Category) error {
	role, ok := RoleForTransition(target)
	if !ok {
		return shared.NewValidationError(fmt.Sprintf("Unknown target status %q", target))
	}
	if !r.HasPermission(actorID, role, &category) {
		return shared.NewAuthorizationError(fmt.Sprintf("Actor %d may not set status %s", actorID, target))
	}
	return nil
}

// ActorLabel names the department of an actor for audit lines
func (r *Roster) ActorLabel(actorID int64) string {
	switch {
	case r.IsSuperAdmin(actorID):
		return "Супер-админ"
	case r.HasPermission(actorID, RoleSales, nil):
		return "Отдел продаж"
	case r.HasPermission(actorID, RoleProduction, nil):
		return "Отдел производства"
	case r.HasPermission(actorID, RoleWarehouse, nil):
		return "Склад"
	default:
		return fmt.Sprintf("Админ %d", actorID)
	}
}

// ProductionPool lists the production actors of a category, sorted
func (r *Roster) ProductionPool(category Category) []int64 {
	pool := r.production[category]
	ids := make([]int64, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
