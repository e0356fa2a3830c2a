package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/auth"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/runtime"
	"github.com/0gfoundation/exchange-booth/internal/system"
)

// signedAs stands in for auth.Middleware: it places body as the signed payload.
func signedAs(body []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.OperatorKey, "0x000000000000000000000000000000000000bEEF")
		c.Set(auth.PayloadKey, body)
		c.Next()
	}
}

func submit(t *testing.T, store ledger.Store, mw gin.HandlerFunc) (int, []byte) {
	t.Helper()
	rt := runtime.New(store, address.Ed25519Space{}, system.DefaultRent, runtime.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	r := gin.New()
	group := r.Group("/v1")
	if mw != nil {
		group.Use(mw)
	}
	NewSubmitHandler(rt, zap.NewNop()).Register(group)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/transactions", nil))
	return w.Code, w.Body.Bytes()
}

func TestSubmit_Executes(t *testing.T) {
	store := ledger.NewMemoryStore()
	if err := store.Put(context.Background(), &account.Info{Key: testAdmin, Lamports: 100}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	body, _ := json.Marshal(NewTransactionRequest([]address.Address{testAdmin}, system.Transfer(testAdmin, key(9), 40)))

	code, resp := submit(t, store, signedAs(body))
	if code != http.StatusOK {
		t.Fatalf("status: got %d: %s", code, resp)
	}
	var rc receiptView
	if err := json.Unmarshal(resp, &rc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rc.ID == "" || len(rc.Changed) != 2 {
		t.Errorf("receipt: %+v", rc)
	}
	info, _, _ := store.Get(context.Background(), key(9))
	if info.Lamports != 40 {
		t.Errorf("recipient: got %d want 40", info.Lamports)
	}
}

func TestSubmit_ProgramErrorIsBadRequest(t *testing.T) {
	store := ledger.NewMemoryStore()
	body, _ := json.Marshal(NewTransactionRequest(nil, system.Transfer(testAdmin, key(9), 40)))

	code, resp := submit(t, store, signedAs(body))
	if code != http.StatusBadRequest {
		t.Fatalf("status: got %d: %s", code, resp)
	}
	var e struct{ Name string }
	_ = json.Unmarshal(resp, &e)
	if e.Name != "MissingSignature" {
		t.Errorf("error name: got %q", e.Name)
	}
}

func TestSubmit_RequiresSignedPayload(t *testing.T) {
	if code, _ := submit(t, ledger.NewMemoryStore(), nil); code != http.StatusUnauthorized {
		t.Errorf("unsigned: got %d want 401", code)
	}
	if code, _ := submit(t, ledger.NewMemoryStore(), signedAs([]byte("{"))); code != http.StatusBadRequest {
		t.Errorf("malformed: got %d want 400", code)
	}
}
