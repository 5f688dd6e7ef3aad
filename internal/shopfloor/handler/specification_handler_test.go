package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupShopfloorTest(t *testing.T) (*testutil.TestEnv, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	audit := service.NewAuditService(repos.AuditEvent, logger)
	progress := service.NewProgressService(repos.Specification, repos.SpecItem, repos.WorkOrder, logger)
	fulfillment := service.NewFulfillmentService(db, repos, progress, audit, true, logger)
	workOrder := service.NewWorkOrderService(repos.WorkOrder, repos.SpecItem, repos.Machine, progress, audit, true, logger)
	access := service.NewAccessService(repos, audit, true)
	visibility := service.NewVisibilityService(repos.Specification, repos.SpecItem, repos.WorkOrder, repos.AccessGrant, repos.Part, progress, true)
	export := service.NewExportService(repos, true)
	directory := service.NewDirectoryService(repos.Part, repos.Machine, audit)

	specHandler := NewSpecificationHandler(fulfillment, visibility, export)
	woHandler := NewWorkOrderHandler(workOrder, visibility)
	accessHandler := NewAccessHandler(access)
	dirHandler := NewDirectoryHandler(directory, visibility)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/specifications", specHandler.List)
	api.GET("/specifications/:id", specHandler.Get)
	api.POST("/specifications", specHandler.Create)
	api.PUT("/specifications/:id", specHandler.Update)
	api.DELETE("/specifications/:id", specHandler.Delete)
	api.POST("/specifications/:id/publish", specHandler.Publish)
	api.POST("/specifications/:id/items", specHandler.CreateItem)
	api.GET("/specifications/:id/work-orders", woHandler.ListBySpecification)
	api.POST("/specifications/:id/work-orders/backfill", woHandler.Backfill)
	api.DELETE("/spec-items/:id", specHandler.DeleteItem)
	api.PUT("/spec-items/:id/progress", specHandler.UpdateItemProgress)
	api.GET("/work-orders", woHandler.List)
	api.GET("/work-orders/:id", woHandler.Get)
	api.POST("/work-orders/:id/queue", woHandler.Queue)
	api.POST("/work-orders/:id/start", woHandler.Start)
	api.POST("/work-orders/:id/block", woHandler.Block)
	api.POST("/work-orders/:id/progress", woHandler.ReportProgress)
	api.POST("/work-orders/:id/complete", woHandler.Complete)
	api.POST("/work-orders/:id/cancel", woHandler.Cancel)
	api.GET("/machines/:id/queue", woHandler.MachineQueue)
	api.GET("/access-grants", accessHandler.List)
	api.POST("/access-grants", accessHandler.Grant)
	api.DELETE("/access-grants/:id", accessHandler.Revoke)
	api.GET("/parts", dirHandler.ListParts)
	api.GET("/parts/:id", dirHandler.GetPart)

	return &testutil.TestEnv{DB: db, Router: router, T: t}, repos
}

func seedSpecFixtures(t *testing.T, db *gorm.DB) {
	t.Helper()
	testutil.SeedTestUser(t, db, "test-admin-001", "Test Admin", entity.RoleAdmin)
	testutil.SeedTestPart(t, db, "part-001", "P-001", 10)
	testutil.SeedTestPart(t, db, "part-002", "P-002", 5)
	testutil.SeedTestMachine(t, db, "machine-001", "Lathe 1")
}

func createTestSpec(t *testing.T, env *testutil.TestEnv, token, number string, items []map[string]interface{}) string {
	t.Helper()
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/specifications", map[string]interface{}{
		"number": number,
		"items":  items,
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating spec, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestSpecificationCreateCascade(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID := createTestSpec(t, env, token, "SPEC-001", []map[string]interface{}{
		{"item_type": "make", "part_id": "part-001", "qty_required": 10, "uom": "pcs"},
		{"item_type": "coop", "description": "外协热处理", "qty_required": 5},
	})

	// 明细按录入顺序编号
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+specID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.SpecStatusDraft {
		t.Errorf("new spec status = %v, want draft", data["status"])
	}
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["line_no"].(float64) != 1 {
		t.Errorf("first item line_no = %v, want 1", first["line_no"])
	}

	// 自制明细级联建出工单,外协明细没有
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+specID+"/work-orders", nil, token)
	resp = testutil.ParseResponse(w)
	orders := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("got %d work orders, want 1 (make item only)", len(orders))
	}
	wo := orders[0].(map[string]interface{})
	if wo["status"] != entity.WOStatusBacklog {
		t.Errorf("cascade work order status = %v, want backlog", wo["status"])
	}
	if wo["qty_plan"].(float64) != 10 {
		t.Errorf("qty_plan = %v, want 10", wo["qty_plan"])
	}
}

func TestSpecificationCreateValidation(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	// 数量必须为正
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/specifications", map[string]interface{}{
		"number": "SPEC-BAD",
		"items": []map[string]interface{}{
			{"item_type": "make", "part_id": "part-001", "qty_required": 0},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero quantity: got %d, want 400", w.Code)
	}

	// 自制明细必须关联零件
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/specifications", map[string]interface{}{
		"number": "SPEC-BAD2",
		"items": []map[string]interface{}{
			{"item_type": "make", "qty_required": 3},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("make item without part: got %d, want 400", w.Code)
	}

	// 编号唯一
	createTestSpec(t, env, token, "SPEC-DUP", nil)
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/specifications", map[string]interface{}{
		"number": "SPEC-DUP",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate number: got %d, want 400", w.Code)
	}
}

func TestSpecificationPublishActivates(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID := createTestSpec(t, env, token, "SPEC-PUB", []map[string]interface{}{
		{"item_type": "coop", "description": "外协", "qty_required": 1},
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/specifications/"+specID+"/publish",
		map[string]interface{}{"published": true}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.SpecStatusActive {
		t.Errorf("published spec status = %v, want active", data["status"])
	}
	if data["published_to_operators"] != true {
		t.Error("published_to_operators not set")
	}
}

func TestSpecItemDeleteRenumbers(t *testing.T) {
	env, repos := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID := createTestSpec(t, env, token, "SPEC-RENUM", []map[string]interface{}{
		{"item_type": "coop", "description": "a", "qty_required": 1},
		{"item_type": "coop", "description": "b", "qty_required": 1},
		{"item_type": "coop", "description": "c", "qty_required": 1},
	})

	items, err := repos.SpecItem.ListBySpecification(context.Background(), specID)
	if err != nil || len(items) != 3 {
		t.Fatalf("expected 3 items, got %d (err %v)", len(items), err)
	}

	// 删中间一条,行号收紧
	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/spec-items/"+items[1].ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	remaining, _ := repos.SpecItem.ListBySpecification(context.Background(), specID)
	if len(remaining) != 2 {
		t.Fatalf("got %d items after delete, want 2", len(remaining))
	}
	for i, item := range remaining {
		if item.LineNo != i+1 {
			t.Errorf("item %d line_no = %d, want %d", i, item.LineNo, i+1)
		}
	}
}

func TestSpecItemDeleteOrphanProtection(t *testing.T) {
	env, repos := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	// 零件已有生产进展
	part, _ := repos.Part.FindByID(context.Background(), "part-001")
	part.QtyDone = 3
	part.Status = entity.PartStatusInProgress
	repos.Part.Update(context.Background(), part)

	specID := createTestSpec(t, env, token, "SPEC-ORPHAN", []map[string]interface{}{
		{"item_type": "make", "part_id": "part-001", "qty_required": 10},
	})
	items, _ := repos.SpecItem.ListBySpecification(context.Background(), specID)

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/spec-items/"+items[0].ID, nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("deleting sole item of an in-progress part: got %d, want 409", w.Code)
	}
}

func TestOperatorSpecVisibility(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	adminToken := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)
	testutil.SeedTestUser(t, env.DB, "op-001", "Operator One", entity.RoleOperator)
	opToken := testutil.OperatorToken("op-001")

	hiddenID := createTestSpec(t, env, adminToken, "SPEC-HIDDEN", nil)
	publishedID := createTestSpec(t, env, adminToken, "SPEC-PUBLIC", nil)
	testutil.DoRequest(env.Router, "POST", "/api/v1/specifications/"+publishedID+"/publish",
		map[string]interface{}{"published": true}, adminToken)

	// 只看到已发布的
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/specifications", nil, opToken)
	resp := testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("operator sees %d specs, want 1 (published only)", len(items))
	}

	// 未授权的详情按不存在处理
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/specifications/"+hiddenID, nil, opToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("unauthorized spec detail: got %d, want 404", w.Code)
	}

	// 授权后可见
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants", map[string]interface{}{
		"entity_type": "specification",
		"entity_id":   hiddenID,
		"user_id":     "op-001",
		"permission":  "view",
	}, adminToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("grant failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/specifications", nil, opToken)
	resp = testutil.ParseResponse(w)
	items = resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("operator sees %d specs after grant, want 2", len(items))
	}
}

func TestSpecificationDeleteCascade(t *testing.T) {
	env, repos := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)

	specID := createTestSpec(t, env, token, "SPEC-DEL", []map[string]interface{}{
		{"item_type": "make", "part_id": "part-002", "qty_required": 5},
	})

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/specifications/"+specID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := repos.Specification.FindByID(context.Background(), specID); err == nil {
		t.Error("specification still exists after delete")
	}
	orders, _ := repos.WorkOrder.ListBySpecification(context.Background(), specID)
	if len(orders) != 0 {
		t.Errorf("%d work orders survive spec delete, want 0", len(orders))
	}
	// 未级联时零件保留
	if _, err := repos.Part.FindByID(context.Background(), "part-002"); err != nil {
		t.Error("part deleted without cascade_parts")
	}
}
