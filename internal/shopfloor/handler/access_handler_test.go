package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/testutil"
)

func grantBody(entityType, entityID, userID, permission string) map[string]interface{} {
	return map[string]interface{}{
		"entity_type": entityType,
		"entity_id":   entityID,
		"user_id":     userID,
		"permission":  permission,
	}
}

func TestAccessGrantUpsertByTuple(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)
	testutil.SeedTestUser(t, env.DB, "op-001", "Operator One", entity.RoleOperator)

	specID := createTestSpec(t, env, token, "SPEC-GRANT", nil)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "op-001", "view"), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("grant failed: %d %s", w.Code, w.Body.String())
	}
	first := testutil.ParseResponse(w)["data"].(map[string]interface{})

	// 同一三元组重复授予只更新权限级别
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "op-001", "report"), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("re-grant failed: %d %s", w.Code, w.Body.String())
	}
	second := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if second["id"] != first["id"] {
		t.Errorf("re-grant created a new record: %v != %v", second["id"], first["id"])
	}
	if second["permission"] != "report" {
		t.Errorf("permission = %v, want report", second["permission"])
	}

	w = testutil.DoRequest(env.Router, "GET",
		"/api/v1/access-grants?entity_type=specification&entity_id="+specID, nil, token)
	grants := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(grants) != 1 {
		t.Errorf("got %d grants for the tuple, want 1", len(grants))
	}
}

func TestAccessGrantValidation(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)
	testutil.SeedTestUser(t, env.DB, "op-001", "Operator One", entity.RoleOperator)

	specID := createTestSpec(t, env, token, "SPEC-GV", nil)

	// 实体类型白名单
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("machine", "machine-001", "op-001", "view"), token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad entity_type: got %d, want 400", w.Code)
	}

	// 权限级别白名单
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "op-001", "owner"), token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad permission: got %d, want 400", w.Code)
	}

	// 目标实体必须存在
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", "no-such-spec", "op-001", "view"), token)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entity: got %d, want 404", w.Code)
	}

	// 被授权用户必须存在
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "no-such-user", "view"), token)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing user: got %d, want 404", w.Code)
	}
}

func TestAccessGrantScoping(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	adminToken := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)
	testutil.SeedTestUser(t, env.DB, "op-001", "Operator One", entity.RoleOperator)
	testutil.SeedTestUser(t, env.DB, "op-002", "Operator Two", entity.RoleOperator)

	specID := createTestSpec(t, env, adminToken, "SPEC-SCOPE", nil)
	testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "op-001", "view"), adminToken)
	testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "op-002", "view"), adminToken)

	// 操作工只能看到授予自己的记录
	opToken := testutil.OperatorToken("op-001")
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/access-grants", nil, opToken)
	grants := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(grants) != 1 {
		t.Fatalf("operator sees %d grants, want 1 (own only)", len(grants))
	}
	if grants[0].(map[string]interface{})["user_id"] != "op-001" {
		t.Errorf("operator sees someone else's grant: %v", grants[0])
	}

	// 零件定向授权要求规格单管理权限
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("part", "part-001", "op-002", "view"), opToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("part grant by operator: got %d, want 403", w.Code)
	}
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("part", "part-001", "op-002", "view"), adminToken)
	if w.Code != http.StatusCreated {
		t.Errorf("part grant by admin: got %d, want 201", w.Code)
	}
}

func TestAccessGrantRevoke(t *testing.T) {
	env, _ := setupShopfloorTest(t)
	token := testutil.AdminToken()
	seedSpecFixtures(t, env.DB)
	testutil.SeedTestUser(t, env.DB, "op-001", "Operator One", entity.RoleOperator)

	specID := createTestSpec(t, env, token, "SPEC-RVK", nil)
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/access-grants",
		grantBody("specification", specID, "op-001", "view"), token)
	grantID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, "DELETE", "/api/v1/access-grants/"+grantID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("revoke failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, "GET",
		"/api/v1/access-grants?entity_type=specification&entity_id="+specID, nil, token)
	grants := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(grants) != 0 {
		t.Errorf("%d grants survive revocation, want 0", len(grants))
	}

	// 重复撤销按不存在处理
	w = testutil.DoRequest(env.Router, "DELETE", "/api/v1/access-grants/"+grantID, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("double revoke: got %d, want 404", w.Code)
	}
}
