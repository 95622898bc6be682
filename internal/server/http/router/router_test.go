package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/server/http/dto"
	"github.com/opendigger/pointgate/internal/server/http/handlers"
	testhelpers "github.com/opendigger/pointgate/internal/test"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := testhelpers.NewPointsFacadeStub()
	verifier := fasign.NewCallbackVerifier("callback-secret")
	engine := Setup(facade, testhelpers.StrategyStub{Caller: "ledger-api"}, verifier, logger)

	// service routes demand a collaborator token
	body, _ := json.Marshal(dto.GrantRequest{OwnerID: 7, Kind: "cash", Amount: 100})
	req := httptest.NewRequest(http.MethodPost, "/api/ledger/grant", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ledger/grant", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for grant, got %d", resp.Code)
	}

	// admin routes reject ordinary collaborators
	req = httptest.NewRequest(http.MethodPost, "/api/admin/withdrawals/1/rollback", nil)
	req.Header.Set("Authorization", "Bearer token")
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin caller, got %d", resp.Code)
	}

	adminEngine := Setup(facade, testhelpers.StrategyStub{Caller: "admin"}, verifier, logger)
	req = httptest.NewRequest(http.MethodPost, "/api/admin/withdrawals/1/rollback", nil)
	req.Header.Set("Authorization", "Bearer token")
	resp = httptest.NewRecorder()
	adminEngine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin rollback, got %d", resp.Code)
	}

	// the webhook route skips service auth; a bad provider signature is
	// still rejected by the handler
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/fasign", bytes.NewReader([]byte(`{"bizId":"c"}`)))
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned callback, got %d", resp.Code)
	}
}

var _ handlers.PointsFacade = (*testhelpers.PointsFacadeStub)(nil)
