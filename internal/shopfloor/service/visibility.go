package service

import (
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
)

// Actor 访问主体
type Actor struct {
	ID   string
	Name string
	Role string
}

// CanManage 是否具备规格单管理权限
func (a Actor) CanManage() bool {
	return entity.HasPermission(a.Role, entity.PermManageSpecifications)
}

// CanView 是否具备规格单只读权限
func (a Actor) CanView() bool {
	return entity.HasPermission(a.Role, entity.PermViewSpecifications)
}

// grantIndex 按实体类型整理某用户的授权记录
type grantIndex struct {
	specs  map[string]bool
	orders map[string]bool
	parts  map[string]bool
}

func indexGrants(actor Actor, grants []entity.AccessGrant) grantIndex {
	idx := grantIndex{
		specs:  make(map[string]bool),
		orders: make(map[string]bool),
		parts:  make(map[string]bool),
	}
	for _, g := range grants {
		if g.UserID != actor.ID {
			continue
		}
		switch g.EntityType {
		case entity.GrantEntitySpecification:
			idx.specs[g.EntityID] = true
		case entity.GrantEntityWorkOrder:
			idx.orders[g.EntityID] = true
		case entity.GrantEntityPart:
			idx.parts[g.EntityID] = true
		}
	}
	return idx
}

// VisibleSpecifications 解析主体可见的规格单集合。
// 管理权限与只读权限均可见全部;操作工仅见已发布或被授权的;
// 其余角色不可见任何规格单。
func VisibleSpecifications(actor Actor, grants []entity.AccessGrant, specs []entity.Specification) []entity.Specification {
	if actor.CanManage() || actor.CanView() {
		return specs
	}
	if actor.Role != entity.RoleOperator {
		return nil
	}

	idx := indexGrants(actor, grants)
	var out []entity.Specification
	for _, sp := range specs {
		if sp.PublishedToOperators || idx.specs[sp.ID] {
			out = append(out, sp)
		}
	}
	return out
}

// VisibleWorkOrders 解析主体可见的工单集合。
// 操作工可见:指派给本人的、直接授权的、以及所属规格单可见的工单。
func VisibleWorkOrders(actor Actor, grants []entity.AccessGrant, specs []entity.Specification, orders []entity.WorkOrder) []entity.WorkOrder {
	if actor.CanManage() || actor.CanView() {
		return orders
	}
	if actor.Role != entity.RoleOperator {
		return nil
	}

	idx := indexGrants(actor, grants)
	visibleSpec := make(map[string]bool)
	for _, sp := range specs {
		if sp.PublishedToOperators || idx.specs[sp.ID] {
			visibleSpec[sp.ID] = true
		}
	}

	var out []entity.WorkOrder
	for _, wo := range orders {
		assigned := wo.AssignedOperatorID != nil && *wo.AssignedOperatorID == actor.ID
		if assigned || idx.orders[wo.ID] || visibleSpec[wo.SpecificationID] {
			out = append(out, wo)
		}
	}
	return out
}

// VisibleParts 解析主体可见的零件集合。
// 操作工只可见其可见规格单所关联的零件及直接授权的零件;
// 完全无规格单查看权限的角色只能看到未挂接到任何规格单的零件。
func VisibleParts(actor Actor, grants []entity.AccessGrant, specs []entity.Specification, items []entity.SpecItem, parts []entity.Part) []entity.Part {
	if actor.CanManage() || actor.CanView() {
		return parts
	}

	// 零件→所属规格单 反查表
	partSpecs := make(map[string][]string)
	for _, it := range items {
		if it.PartID != nil {
			partSpecs[*it.PartID] = append(partSpecs[*it.PartID], it.SpecificationID)
		}
	}

	if actor.Role != entity.RoleOperator {
		var out []entity.Part
		for _, p := range parts {
			if len(partSpecs[p.ID]) == 0 {
				out = append(out, p)
			}
		}
		return out
	}

	idx := indexGrants(actor, grants)
	visibleSpec := make(map[string]bool)
	for _, sp := range specs {
		if sp.PublishedToOperators || idx.specs[sp.ID] {
			visibleSpec[sp.ID] = true
		}
	}

	var out []entity.Part
	for _, p := range parts {
		if idx.parts[p.ID] {
			out = append(out, p)
			continue
		}
		for _, specID := range partSpecs[p.ID] {
			if visibleSpec[specID] {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
