package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/testutil"
)

// specWithMakeItem 建一张带单条自制明细的规格单,返回 (specID, workOrderID)
func specWithMakeItem(t *testing.T, env *testutil.TestEnv, token, number, partID string, qty int) (string, string) {
	t.Helper()
	specID := createTestSpec(t, env, token, number, []map[string]interface{}{
		{"item_type": "make", "part_id": partID, "qty_required": qty},
	})
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+specID+"/work-orders", nil, token)
	resp := testutil.ParseResponse(w)
	orders := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 cascade work order, got %d", len(orders))
	}
	return specID, orders[0].(map[string]interface{})["id"].(string)
}

func TestWorkOrderQueueAndCompaction(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	_, wo1 := specWithMakeItem(t, env, token, "SPEC-Q1", "part-001", 10)
	_, wo2 := specWithMakeItem(t, env, token, "SPEC-Q2", "part-002", 5)

	// 依次排队,位置连续
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/queue",
		map[string]interface{}{"machine_id": "machine-001"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("queue failed: %d %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.WOStatusQueued || data["queue_pos"].(float64) != 1 {
		t.Errorf("first queued order: status=%v pos=%v, want queued/1", data["status"], data["queue_pos"])
	}

	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo2+"/queue",
		map[string]interface{}{"machine_id": "machine-001"}, token)

	// 排头开工,队列压实
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/start", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("start failed: %d %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.WOStatusInProgress {
		t.Errorf("started order status = %v, want in_progress", data["status"])
	}
	if _, hasPos := data["queue_pos"]; hasPos && data["queue_pos"] != nil {
		t.Errorf("started order keeps queue_pos %v", data["queue_pos"])
	}
	if data["started_at"] == nil {
		t.Error("started_at not stamped")
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/machines/machine-001/queue", nil, token)
	queue := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
	head := queue[0].(map[string]interface{})
	if head["id"] != wo2 || head["queue_pos"].(float64) != 1 {
		t.Errorf("after compaction head = %v pos %v, want wo2 at 1", head["id"], head["queue_pos"])
	}
}

func TestWorkOrderQueueExplicitPosition(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	_, wo1 := specWithMakeItem(t, env, token, "SPEC-P1", "part-001", 10)
	_, wo2 := specWithMakeItem(t, env, token, "SPEC-P2", "part-002", 5)

	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/queue",
		map[string]interface{}{"machine_id": "machine-001"}, token)

	// 插到 1 号位,原排头顺延
	pos := 1
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo2+"/queue",
		map[string]interface{}{"machine_id": "machine-001", "position": pos}, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/machines/machine-001/queue", nil, token)
	queue := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(queue))
	}
	if queue[0].(map[string]interface{})["id"] != wo2 {
		t.Error("inserted order is not at the head")
	}
	if queue[1].(map[string]interface{})["queue_pos"].(float64) != 2 {
		t.Errorf("displaced order pos = %v, want 2", queue[1].(map[string]interface{})["queue_pos"])
	}
}

func TestWorkOrderRequeueSameMachineKeepsDenseQueue(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	_, wo1 := specWithMakeItem(t, env, token, "SPEC-R1", "part-001", 10)
	_, wo2 := specWithMakeItem(t, env, token, "SPEC-R2", "part-002", 5)
	_, wo3 := specWithMakeItem(t, env, token, "SPEC-R3", "part-001", 8)

	for _, id := range []string{wo1, wo2, wo3} {
		testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+id+"/queue",
			map[string]interface{}{"machine_id": "machine-001"}, token)
	}

	// 中间工单原机台重排到队尾,空出的位置要补上
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo2+"/queue",
		map[string]interface{}{"machine_id": "machine-001"}, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/machines/machine-001/queue", nil, token)
	queue := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	wantOrder := []string{wo1, wo3, wo2}
	for i, raw := range queue {
		got := raw.(map[string]interface{})
		if got["id"] != wantOrder[i] {
			t.Errorf("queue[%d] = %v, want %s", i, got["id"], wantOrder[i])
		}
		if got["queue_pos"].(float64) != float64(i+1) {
			t.Errorf("queue[%d] pos = %v, want %d", i, got["queue_pos"], i+1)
		}
	}

	// 原机台带位置重排同样保持连续
	pos := 1
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo2+"/queue",
		map[string]interface{}{"machine_id": "machine-001", "position": pos}, token)

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/machines/machine-001/queue", nil, token)
	queue = testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	wantOrder = []string{wo2, wo1, wo3}
	for i, raw := range queue {
		got := raw.(map[string]interface{})
		if got["id"] != wantOrder[i] || got["queue_pos"].(float64) != float64(i+1) {
			t.Errorf("queue[%d] = %v pos %v, want %s pos %d",
				i, got["id"], got["queue_pos"], wantOrder[i], i+1)
		}
	}
}

func TestWorkOrderQueueValidation(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	_, wo1 := specWithMakeItem(t, env, token, "SPEC-QV", "part-001", 10)

	// 机台必须存在
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/queue",
		map[string]interface{}{"machine_id": "no-such-machine"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown machine: got %d, want 400", w.Code)
	}

	// 终态工单拒绝排队
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/cancel", nil, token)
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/queue",
		map[string]interface{}{"machine_id": "machine-001"}, token)
	if w.Code != http.StatusConflict {
		t.Errorf("queue canceled order: got %d, want 409", w.Code)
	}
}

func TestOperatorObjectReadsScopedByVisibility(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	adminToken := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)
	testutil.SeedTestUser(t, env.DB, "op-001", "Operator One", entity.RoleOperator)
	opToken := testutil.OperatorToken("op-001")

	specID, wo1 := specWithMakeItem(t, env, adminToken, "SPEC-VIS", "part-001", 10)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/queue",
		map[string]interface{}{"machine_id": "machine-001"}, adminToken)

	// 未发布未授权:单个工单、规格单工单列表、零件详情一律按不存在处理
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/work-orders/"+wo1, nil, opToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("invisible work order by id: got %d, want 404", w.Code)
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+specID+"/work-orders", nil, opToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("work orders of invisible spec: got %d, want 404", w.Code)
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/parts/part-001", nil, opToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("part of invisible spec: got %d, want 404", w.Code)
	}

	// 机台队列只返回可见工单
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/machines/machine-001/queue", nil, opToken)
	queue := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(queue) != 0 {
		t.Errorf("operator sees %d queued orders on machine, want 0", len(queue))
	}

	// 发布后全部可见
	testutil.DoRequest(env.Router, "POST", "/api/v1/specifications/"+specID+"/publish",
		map[string]interface{}{"published": true}, adminToken)

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/work-orders/"+wo1, nil, opToken)
	if w.Code != http.StatusOK {
		t.Errorf("work order after publish: got %d, want 200", w.Code)
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+specID+"/work-orders", nil, opToken)
	if w.Code != http.StatusOK {
		t.Errorf("spec work orders after publish: got %d, want 200", w.Code)
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/parts/part-001", nil, opToken)
	if w.Code != http.StatusOK {
		t.Errorf("part after publish: got %d, want 200", w.Code)
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/machines/machine-001/queue", nil, opToken)
	queue = testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(queue) != 1 {
		t.Errorf("operator sees %d queued orders after publish, want 1", len(queue))
	}
}

func TestWorkOrderProgressAutoCompletes(t *testing.T) {
	env, repos := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID, wo1 := specWithMakeItem(t, env, token, "SPEC-DONE", "part-001", 10)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/start", nil, token)

	// 报足计划数自动完工
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/progress",
		map[string]interface{}{"qty_good": 10, "qty_scrap": 1}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("progress failed: %d %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.WOStatusDone {
		t.Errorf("status = %v, want done", data["status"])
	}
	if data["completed_at"] == nil {
		t.Error("completed_at not stamped")
	}

	// 明细满足,单明细规格单关闭
	items, _ := repos.SpecItem.ListBySpecification(context.Background(), specID)
	if items[0].Status != entity.ItemStatusFulfilled || items[0].QtyDone != 10 {
		t.Errorf("item status=%s qty=%d, want fulfilled/10", items[0].Status, items[0].QtyDone)
	}
	spec, _ := repos.Specification.FindByID(context.Background(), specID)
	if spec.Status != entity.SpecStatusClosed {
		t.Errorf("spec status = %s, want closed", spec.Status)
	}

	// 终态工单拒绝继续报工
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/progress",
		map[string]interface{}{"qty_good": 1}, token)
	if w.Code != http.StatusConflict {
		t.Errorf("progress on done order: got %d, want 409", w.Code)
	}
}

func TestWorkOrderProgressValidation(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	_, wo1 := specWithMakeItem(t, env, token, "SPEC-NEG", "part-001", 10)
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/progress",
		map[string]interface{}{"qty_good": -1}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative quantity: got %d, want 400", w.Code)
	}
}

func TestWorkOrderBlockAndResume(t *testing.T) {
	env, repos := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID, wo1 := specWithMakeItem(t, env, token, "SPEC-BLK", "part-001", 10)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/start", nil, token)

	// 原因必填且原样保存
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/block",
		map[string]interface{}{}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("block without reason: got %d, want 400", w.Code)
	}

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/block",
		map[string]interface{}{"reason": "等待刀具"}, token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.WOStatusBlocked || data["block_reason"] != "等待刀具" {
		t.Errorf("blocked order: status=%v reason=%v", data["status"], data["block_reason"])
	}

	// 零进度时阻塞不改变明细状态
	items, _ := repos.SpecItem.ListBySpecification(context.Background(), specID)
	if items[0].Status != entity.ItemStatusOpen {
		t.Errorf("item status = %s, want open for blocked order without progress", items[0].Status)
	}

	// 报工自动恢复加工中并清掉原因
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/progress",
		map[string]interface{}{"qty_good": 3}, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.WOStatusInProgress {
		t.Errorf("status after progress = %v, want in_progress", data["status"])
	}
	if reason, ok := data["block_reason"].(string); ok && reason != "" {
		t.Errorf("block_reason not cleared: %q", reason)
	}

	items, _ = repos.SpecItem.ListBySpecification(context.Background(), specID)
	if items[0].Status != entity.ItemStatusPartial {
		t.Errorf("item status = %s, want partial", items[0].Status)
	}

	// 有进度后再阻塞才传导到明细
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/block",
		map[string]interface{}{"reason": "毛坯断供"}, token)
	items, _ = repos.SpecItem.ListBySpecification(context.Background(), specID)
	if items[0].Status != entity.ItemStatusBlocked {
		t.Errorf("item status = %s, want blocked once progress exists", items[0].Status)
	}
}

func TestWorkOrderCancelExcludedFromProgress(t *testing.T) {
	env, repos := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID, wo1 := specWithMakeItem(t, env, token, "SPEC-CXL", "part-001", 10)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/start", nil, token)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/progress",
		map[string]interface{}{"qty_good": 4}, token)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/cancel", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d %s", w.Code, w.Body.String())
	}

	// 取消的工单不再计入明细进度
	items, _ := repos.SpecItem.ListBySpecification(context.Background(), specID)
	if items[0].QtyDone != 0 || items[0].Status != entity.ItemStatusOpen {
		t.Errorf("item after cancel: qty=%d status=%s, want 0/open", items[0].QtyDone, items[0].Status)
	}
}

func TestWorkOrderBackfill(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID := createTestSpec(t, env, token, "SPEC-BF", nil)

	// 后补的明细不自动建工单
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/specifications/"+specID+"/items",
		map[string]interface{}{"item_type": "make", "part_id": "part-001", "qty_required": 7}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create item failed: %d %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+specID+"/work-orders", nil, token)
	orders := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(orders) != 0 {
		t.Fatalf("appended item created %d work orders, want 0", len(orders))
	}

	// 补单命令补齐
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/specifications/"+specID+"/work-orders/backfill", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("backfill failed: %d %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["data"].(map[string]interface{})["created"].(float64) != 1 {
		t.Errorf("backfill created = %v, want 1", resp["data"].(map[string]interface{})["created"])
	}

	// 幂等:已有在途工单的明细不重复补
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/specifications/"+specID+"/work-orders/backfill", nil, token)
	resp = testutil.ParseResponse(w)
	if resp["data"].(map[string]interface{})["created"].(float64) != 0 {
		t.Errorf("second backfill created = %v, want 0", resp["data"].(map[string]interface{})["created"])
	}
}

func TestWorkOrderCompleteForcesQuantities(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	_, wo1 := specWithMakeItem(t, env, token, "SPEC-FORCE", "part-001", 10)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/start", nil, token)
	testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/progress",
		map[string]interface{}{"qty_good": 4}, token)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/work-orders/"+wo1+"/complete", nil, token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != entity.WOStatusDone {
		t.Errorf("status = %v, want done", data["status"])
	}
	if data["qty_done"].(float64) != 10 {
		t.Errorf("qty_done = %v, want topped up to 10", data["qty_done"])
	}
}
