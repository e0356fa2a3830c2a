package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/api"
	"github.com/0gfoundation/exchange-booth/internal/auth"
	"github.com/0gfoundation/exchange-booth/internal/config"
	"github.com/0gfoundation/exchange-booth/internal/echo"
	"github.com/0gfoundation/exchange-booth/internal/instruction"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/oracle"
)

const testProgramID = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

// ── helpers ───────────────────────────────────────────────────────────────────

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Ledger.Backend = "memory"
	cfg.Program.ID = testProgramID
	cfg.Program.AddressSpace = "ed25519"
	cfg.Oracle.Kind = "account"
	cfg.Oracle.MaxAgeSec = 60
	cfg.Oracle.RPS = 5
	cfg.Rent.LamportsPerByteYear = 3480
	cfg.Rent.ExemptionThreshold = 2
	return cfg
}

func serve(t *testing.T, cfg *config.Config, store ledger.Store, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := newServer(cfg, store, auth.NewMemoryNonces(), newFeed(cfg, zap.NewNop()), prometheus.NewRegistry(), zap.NewNop())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

// ── openLedger ────────────────────────────────────────────────────────────────

func TestOpenLedger_Memory(t *testing.T) {
	store, nonces, err := openLedger(context.Background(), testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("openLedger: %v", err)
	}
	if _, ok := store.(*ledger.MemoryStore); !ok {
		t.Errorf("store: got %T want *ledger.MemoryStore", store)
	}
	if _, ok := nonces.(*auth.MemoryNonces); !ok {
		t.Errorf("nonces: got %T want *auth.MemoryNonces", nonces)
	}
}

func TestOpenLedger_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Ledger.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()

	store, nonces, err := openLedger(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("openLedger: %v", err)
	}
	if _, ok := store.(*ledger.RedisStore); !ok {
		t.Errorf("store: got %T want *ledger.RedisStore", store)
	}
	if _, ok := nonces.(*auth.RedisNonces); !ok {
		t.Errorf("nonces: got %T want *auth.RedisNonces", nonces)
	}
}

func TestOpenLedger_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Ledger.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()
	mr.Close()

	if _, _, err := openLedger(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected ping failure")
	}
}

// ── newFeed ───────────────────────────────────────────────────────────────────

func TestNewFeed(t *testing.T) {
	cfg := testConfig()
	if _, ok := newFeed(cfg, zap.NewNop()).(*oracle.AccountFeed); !ok {
		t.Error("account kind must build an AccountFeed")
	}
	cfg.Oracle.Kind = "http"
	cfg.Oracle.URL = "http://oracle.invalid"
	if _, ok := newFeed(cfg, zap.NewNop()).(*oracle.HTTPFeed); !ok {
		t.Error("http kind must build an HTTPFeed")
	}
}

// ── newServer ─────────────────────────────────────────────────────────────────

func TestNewServer_Healthz(t *testing.T) {
	w := serve(t, testConfig(), ledger.NewMemoryStore(), http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestNewServer_Metrics(t *testing.T) {
	w := serve(t, testConfig(), ledger.NewMemoryStore(), http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "booth_runtime_transaction_duration_seconds") {
		t.Errorf("runtime metrics not exposed:\n%s", w.Body.String())
	}
}

func TestNewServer_ServesAccounts(t *testing.T) {
	store := ledger.NewMemoryStore()
	key := address.MustParse("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	if err := store.Put(context.Background(), &account.Info{Key: key, Lamports: 7}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	w := serve(t, testConfig(), store, http.MethodGet, "/v1/accounts/"+key.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body.String())
	}
}

func TestNewServer_SubmissionNeedsOperators(t *testing.T) {
	cfg := testConfig()
	w := serve(t, cfg, ledger.NewMemoryStore(), http.MethodPost, "/v1/transactions")
	if w.Code != http.StatusNotFound {
		t.Errorf("without operators: got %d want 404", w.Code)
	}

	cfg.Server.Operators = []string{"0x000000000000000000000000000000000000bEEF"}
	w = serve(t, cfg, ledger.NewMemoryStore(), http.MethodPost, "/v1/transactions")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unsigned request: got %d want 401", w.Code)
	}
}

// ── Genesis ───────────────────────────────────────────────────────────────────

var (
	testAdmin = address.MustParse("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	testPrice = address.MustParse("HvYVEGzGj3e6yi6fQb4bxCXWVyePbn9aEfTwAWc1j2xD")
)

const testGenesis = `
accounts:
  - address: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    lamports: 1000000000
mints:
  - address: So11111111111111111111111111111111111111112
    authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    decimals: 9
  - address: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    decimals: 6
prices:
  - address: HvYVEGzGj3e6yi6fQb4bxCXWVyePbn9aEfTwAWc1j2xD
    authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    base: So11111111111111111111111111111111111111112
    quote: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    mantissa: 2
    expo: 0
`

// signedPost submits tx to /v1/transactions as the operator holding key.
func signedPost(t *testing.T, r *gin.Engine, key *ecdsa.PrivateKey, tx api.TransactionRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal tx: %v", err)
	}
	msg, _ := json.Marshal(auth.SignedRequest{
		Action:    submitAction,
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
		Nonce:     uuid.NewString(),
		Payload:   payload,
	})
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(nil))
	req.Header.Set("X-Operator-Address", crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set("X-Signed-Message", base64.StdEncoding.EncodeToString(msg))
	req.Header.Set("X-Operator-Signature", "0x"+hex.EncodeToString(sig))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOpenLedger_GenesisBootstrapsFreshLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(testGenesis), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Ledger.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()
	cfg.Ledger.GenesisFile = path
	cfg.Server.Operators = []string{crypto.PubkeyToAddress(key.PublicKey).Hex()}

	ctx := context.Background()
	store, nonces, err := openLedger(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("openLedger: %v", err)
	}
	r := newServer(cfg, store, nonces, newFeed(cfg, zap.NewNop()), prometheus.NewRegistry(), zap.NewNop())

	// the genesis wallet pays for a buffer
	program := cfg.ProgramAddress()
	buf, _, err := echo.AuthorizedBufferAddress(cfg.AddressSpace(), program, testAdmin, 7)
	if err != nil {
		t.Fatalf("derive buffer: %v", err)
	}
	init := instruction.NewInitializeAuthorizedEchoInstruction(program,
		&instruction.InitializeAuthorizedEchoInstructionAccounts{Buffer: buf, Authority: testAdmin},
		&instruction.InitializeAuthorizedEchoArgs{OwnerSeed: 7, BufferSize: 20},
	)
	if w := signedPost(t, r, key, api.NewTransactionRequest([]address.Address{testAdmin}, init)); w.Code != http.StatusOK {
		t.Fatalf("initialize buffer: %d %s", w.Code, w.Body.String())
	}
	if w := serve(t, cfg, store, http.MethodGet, "/v1/buffers/"+buf.String()); w.Code != http.StatusOK {
		t.Errorf("buffer view: %d %s", w.Code, w.Body.String())
	}

	// the genesis price account accepts updates from its authority
	publish := oracle.Publish(testPrice, testAdmin, 3, 0, time.Now().Unix())
	if w := signedPost(t, r, key, api.NewTransactionRequest([]address.Address{testAdmin}, publish)); w.Code != http.StatusOK {
		t.Fatalf("publish price: %d %s", w.Code, w.Body.String())
	}
	info, _, _ := store.Get(ctx, testPrice)
	var price oracle.PriceAccount
	if err := price.Unmarshal(info.Data); err != nil || price.Mantissa != 3 {
		t.Errorf("price: %+v err=%v", price, err)
	}

	// a restart does not re-seed the spent wallet
	spent, _, _ := store.Get(ctx, testAdmin)
	if _, _, err := openLedger(ctx, cfg, zap.NewNop()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again, _, _ := store.Get(ctx, testAdmin)
	if again.Lamports != spent.Lamports || spent.Lamports >= 1_000_000_000 {
		t.Errorf("admin lamports: before restart %d, after %d", spent.Lamports, again.Lamports)
	}
}

func TestOpenLedger_BadGenesis(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.GenesisFile = filepath.Join(t.TempDir(), "absent.yaml")
	if _, _, err := openLedger(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing genesis file")
	}
}
