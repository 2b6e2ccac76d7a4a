package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tokensafe/internal/jwtsigner"
	"tokensafe/internal/ledger"
	ledgerstore "tokensafe/internal/ledger/store"
	"tokensafe/internal/registry/service"
	"tokensafe/internal/registry/store"
	id "tokensafe/pkg/domain"
)

func newRegistryRouter(t *testing.T) (http.Handler, *jwtsigner.Service) {
	t.Helper()
	svc, err := service.New(store.New(ledgerstore.NewInMemoryRecordStore()), ledger.SystemClock{})
	if err != nil {
		t.Fatalf("service init: %v", err)
	}
	signer := jwtsigner.New("test-key", "tokensafe-test")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(svc, logger, nil, signer)
	r := chi.NewRouter()
	h.Register(r)
	return r, signer
}

func bearer(t *testing.T, signer *jwtsigner.Service, account id.AccountID) string {
	t.Helper()
	token, err := signer.IssueToken(account, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func testAccount(b byte) id.AccountID {
	var a id.AccountID
	a[0] = b
	return a
}

func TestMutationsRequireToken(t *testing.T) {
	router, _ := newRegistryRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/registry", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestInitializeSubmitAndRead(t *testing.T) {
	router, signer := newRegistryRouter(t)
	authority := testAccount(1)
	token := testAccount(10)

	initReq := httptest.NewRequest(http.MethodPost, "/registry", nil)
	initReq.Header.Set("Authorization", bearer(t, signer, authority))
	initRec := httptest.NewRecorder()
	router.ServeHTTP(initRec, initReq)
	if initRec.Code != http.StatusCreated {
		t.Fatalf("expected 201 initializing registry, got %d: %s", initRec.Code, initRec.Body.String())
	}

	payload := map[string]any{
		"token":         token.String(),
		"protocol_name": "raydium",
		"risk_score":    85,
		"risk_level":    2,
		"flags_count":   1,
	}
	body, _ := json.Marshal(payload)
	subReq := httptest.NewRequest(http.MethodPost, "/registry/reports", bytes.NewReader(body))
	subReq.Header.Set("Content-Type", "application/json")
	subReq.Header.Set("Authorization", bearer(t, signer, authority))
	subRec := httptest.NewRecorder()
	router.ServeHTTP(subRec, subReq)
	if subRec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting report, got %d: %s", subRec.Code, subRec.Body.String())
	}

	// Anyone can read the report without a token.
	getReq := httptest.NewRequest(http.MethodGet, "/registry/"+authority.String()+"/reports/"+token.String(), nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading report, got %d", getRec.Code)
	}

	var report struct {
		RiskScore    uint8  `json:"risk_score"`
		RiskLevel    string `json:"risk_level"`
		ProtocolName string `json:"protocol_name"`
	}
	if err := json.NewDecoder(getRec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.RiskScore != 85 || report.RiskLevel != "low" || report.ProtocolName != "raydium" {
		t.Fatalf("unexpected report payload: %+v", report)
	}

	regReq := httptest.NewRequest(http.MethodGet, "/registry/"+authority.String(), nil)
	regRec := httptest.NewRecorder()
	router.ServeHTTP(regRec, regReq)
	if regRec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading registry, got %d", regRec.Code)
	}
	var registry struct {
		TotalReports uint64 `json:"total_reports"`
	}
	if err := json.NewDecoder(regRec.Body).Decode(&registry); err != nil {
		t.Fatalf("decode registry: %v", err)
	}
	if registry.TotalReports != 1 {
		t.Fatalf("expected total_reports 1, got %d", registry.TotalReports)
	}
}

func TestValidationErrorsMapTo400(t *testing.T) {
	router, signer := newRegistryRouter(t)
	authority := testAccount(1)

	initReq := httptest.NewRequest(http.MethodPost, "/registry", nil)
	initReq.Header.Set("Authorization", bearer(t, signer, authority))
	initRec := httptest.NewRecorder()
	router.ServeHTTP(initRec, initReq)
	if initRec.Code != http.StatusCreated {
		t.Fatalf("expected 201 initializing registry, got %d", initRec.Code)
	}

	payload := map[string]any{
		"token":      testAccount(10).String(),
		"risk_score": 101,
		"risk_level": 0,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/registry/reports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, signer, authority))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range risk score, got %d", rec.Code)
	}
}

func TestUnknownRegistryMapsTo404(t *testing.T) {
	router, _ := newRegistryRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/registry/"+testAccount(42).String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown registry, got %d", rec.Code)
	}
}
