package service

import (
	"testing"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
)

func TestDeriveItemStatus(t *testing.T) {
	tests := []struct {
		name        string
		qtyDone     int
		qtyRequired int
		hasBlocked  bool
		want        string
	}{
		{"zero progress", 0, 10, false, entity.ItemStatusOpen},
		{"partial progress", 3, 10, false, entity.ItemStatusPartial},
		{"fulfilled", 10, 10, false, entity.ItemStatusFulfilled},
		{"over-fulfilled", 12, 10, false, entity.ItemStatusFulfilled},
		{"blocked", 3, 10, true, entity.ItemStatusBlocked},
		// 零进度时阻塞工单不改变明细状态,避免把未发布的规格单拉成执行中
		{"blocked with zero progress stays open", 0, 10, true, entity.ItemStatusOpen},
		// 已满足优先于阻塞:残留的阻塞工单不把明细拉回 blocked
		{"fulfilled wins over blocked", 10, 10, true, entity.ItemStatusFulfilled},
		{"zero required never fulfilled", 5, 0, false, entity.ItemStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveItemStatus(tt.qtyDone, tt.qtyRequired, tt.hasBlocked)
			if got != tt.want {
				t.Errorf("DeriveItemStatus(%d, %d, %v) = %s, want %s",
					tt.qtyDone, tt.qtyRequired, tt.hasBlocked, got, tt.want)
			}
		})
	}
}

func TestAggregateWorkOrders(t *testing.T) {
	orders := []entity.WorkOrder{
		{Status: entity.WOStatusInProgress, QtyDone: 3},
		{Status: entity.WOStatusDone, QtyDone: 5},
		{Status: entity.WOStatusCanceled, QtyDone: 100},
		{Status: entity.WOStatusBlocked, QtyDone: 1},
	}

	qtyDone, hasBlocked := AggregateWorkOrders(orders)
	if qtyDone != 9 {
		t.Errorf("qtyDone = %d, want 9 (canceled orders excluded)", qtyDone)
	}
	if !hasBlocked {
		t.Error("hasBlocked = false, want true")
	}
}

func TestAggregateWorkOrdersCanceledBlockedIgnored(t *testing.T) {
	// 已取消的工单既不计数也不算阻塞
	orders := []entity.WorkOrder{
		{Status: entity.WOStatusCanceled, QtyDone: 5},
	}
	qtyDone, hasBlocked := AggregateWorkOrders(orders)
	if qtyDone != 0 || hasBlocked {
		t.Errorf("got (%d, %v), want (0, false)", qtyDone, hasBlocked)
	}
}

func TestDeriveSpecStatusClose(t *testing.T) {
	spec := &entity.Specification{Status: entity.SpecStatusActive}

	items := []entity.SpecItem{
		{Status: entity.ItemStatusFulfilled},
		{Status: entity.ItemStatusCanceled},
	}
	if got := DeriveSpecStatus(spec, items); got != entity.SpecStatusClosed {
		t.Errorf("all settled items: got %s, want closed", got)
	}

	items[1].Status = entity.ItemStatusPartial
	if got := DeriveSpecStatus(spec, items); got == entity.SpecStatusClosed {
		t.Error("spec closed with a partial item outstanding")
	}
}

func TestDeriveSpecStatusEmptyItemsNeverClose(t *testing.T) {
	spec := &entity.Specification{Status: entity.SpecStatusDraft}
	if got := DeriveSpecStatus(spec, nil); got == entity.SpecStatusClosed {
		t.Error("empty item list must not close a specification")
	}
}

func TestDeriveSpecStatusClosedIsSticky(t *testing.T) {
	// closed 只进不出:明细恢复未完成也不自动回退
	spec := &entity.Specification{Status: entity.SpecStatusClosed}
	items := []entity.SpecItem{
		{Status: entity.ItemStatusPartial, QtyDone: 1},
	}
	if got := DeriveSpecStatus(spec, items); got != entity.SpecStatusClosed {
		t.Errorf("got %s, want closed to stay closed", got)
	}
}

func TestDeriveSpecStatusActivation(t *testing.T) {
	// 发布即转执行中
	spec := &entity.Specification{Status: entity.SpecStatusDraft, PublishedToOperators: true}
	if got := DeriveSpecStatus(spec, []entity.SpecItem{{Status: entity.ItemStatusOpen}}); got != entity.SpecStatusActive {
		t.Errorf("published draft: got %s, want active", got)
	}

	// 有实际进度也转执行中
	spec = &entity.Specification{Status: entity.SpecStatusDraft}
	items := []entity.SpecItem{{Status: entity.ItemStatusOpen, QtyDone: 2}}
	if got := DeriveSpecStatus(spec, items); got != entity.SpecStatusActive {
		t.Errorf("item with progress: got %s, want active", got)
	}

	// 无发布无进度保持草稿
	spec = &entity.Specification{Status: entity.SpecStatusDraft}
	items = []entity.SpecItem{{Status: entity.ItemStatusOpen}}
	if got := DeriveSpecStatus(spec, items); got != entity.SpecStatusDraft {
		t.Errorf("idle draft: got %s, want draft", got)
	}
}

func TestDeriveSpecStatusBlockedItemActivates(t *testing.T) {
	spec := &entity.Specification{Status: entity.SpecStatusDraft}
	items := []entity.SpecItem{{Status: entity.ItemStatusBlocked}}
	if got := DeriveSpecStatus(spec, items); got != entity.SpecStatusActive {
		t.Errorf("blocked item: got %s, want active", got)
	}
}
