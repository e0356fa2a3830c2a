package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/booth"
	"github.com/0gfoundation/exchange-booth/internal/echo"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/oracle"
	"github.com/0gfoundation/exchange-booth/internal/token"
)

func init() { gin.SetMode(gin.TestMode) }

var (
	testProgram = address.MustParse("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	testAdmin   = key(1)
	testBase    = key(3)
	testQuote   = key(4)
	testOracle  = key(5)
)

func key(n byte) address.Address {
	var a address.Address
	a[0] = n
	a[31] = 0x5a
	return a
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	store  *ledger.MemoryStore
	router *gin.Engine
	addrs  *booth.Addresses
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	space := address.Ed25519Space{}
	store := ledger.NewMemoryStore()

	addrs, err := booth.DeriveAddresses(space, testProgram, testAdmin, testBase, testQuote, testOracle)
	if err != nil {
		t.Fatalf("DeriveAddresses: %v", err)
	}
	st := booth.State{
		Admin:         testAdmin,
		MintBase:      testBase,
		DecimalsBase:  6,
		MintQuote:     testQuote,
		DecimalsQuote: 2,
		Oracle:        testOracle,
		FeeBps:        0,
	}
	put := func(info *account.Info) {
		if err := store.Put(ctx, info); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	put(&account.Info{Key: addrs.State, Owner: testProgram, Lamports: 10, Data: st.Marshal()})
	vaults := []struct {
		key, mint address.Address
		amount    uint64
	}{
		{addrs.VaultBase, testBase, 1_500_000},
		{addrs.VaultQuote, testQuote, 12_345},
	}
	for _, v := range vaults {
		a := token.Account{Mint: v.mint, Owner: addrs.State, Amount: v.amount, State: token.AccountStateInitialized}
		put(&account.Info{Key: v.key, Owner: account.TokenProgramID, Lamports: 10, Data: a.Marshal()})
	}
	put(&account.Info{Key: testAdmin, Lamports: 77})

	rates := oracle.NewStatic().Set(testBase, testQuote, big.NewRat(2, 1))
	h := NewHandler(store, testProgram, space, rates, zap.NewNop())
	r := gin.New()
	h.Register(r.Group("/v1"))
	return &fixture{store: store, router: r, addrs: addrs}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, w.Body.String())
		}
	}
	return w.Code
}

// ── Accounts ──────────────────────────────────────────────────────────────────

func TestGetAccount(t *testing.T) {
	f := newFixture(t)

	var got accountView
	if code := f.get(t, "/v1/accounts/"+testAdmin.String(), &got); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if got.Address != testAdmin || got.Lamports != 77 || got.Owner != account.SystemProgramID {
		t.Errorf("account: %+v", got)
	}

	if code := f.get(t, "/v1/accounts/"+key(99).String(), nil); code != http.StatusNotFound {
		t.Errorf("missing account: got %d want 404", code)
	}
	if code := f.get(t, "/v1/accounts/not-an-address", nil); code != http.StatusBadRequest {
		t.Errorf("bad address: got %d want 400", code)
	}
}

func TestListAccounts_ByOwner(t *testing.T) {
	f := newFixture(t)

	var got []accountView
	if code := f.get(t, "/v1/accounts?owner="+account.TokenProgramID.String(), &got); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if len(got) != 2 {
		t.Errorf("token accounts: got %d want 2", len(got))
	}
	if code := f.get(t, "/v1/accounts", nil); code != http.StatusBadRequest {
		t.Errorf("missing owner: got %d want 400", code)
	}
}

// ── Booths ────────────────────────────────────────────────────────────────────

func TestGetBooth(t *testing.T) {
	f := newFixture(t)

	var got boothView
	if code := f.get(t, "/v1/booths/"+f.addrs.State.String(), &got); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if got.Admin != testAdmin || got.Oracle != testOracle {
		t.Errorf("booth: %+v", got)
	}
	if got.VaultBase.Address != f.addrs.VaultBase || got.VaultBase.UIAmount != "1.5" {
		t.Errorf("base vault: %+v", got.VaultBase)
	}
	if got.VaultQuote.Amount != 12_345 || got.VaultQuote.UIAmount != "123.45" {
		t.Errorf("quote vault: %+v", got.VaultQuote)
	}

	if code := f.get(t, "/v1/booths/"+key(99).String(), nil); code != http.StatusNotFound {
		t.Errorf("missing booth: got %d want 404", code)
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	path := "/v1/booths/" + f.addrs.State.String() + "/quote?input_mint=" + testBase.String() + "&amount=1000000"

	var got quoteView
	if code := f.get(t, path, &got); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	// 1 base token at 2 quote per base, quote has 2 decimals
	if got.Output != 200 || got.UIOutput != "2" || got.OutputMint != testQuote {
		t.Errorf("quote: %+v", got)
	}
	if got.Rate != "2.000000000000" {
		t.Errorf("rate: got %s", got.Rate)
	}
}

func TestQuote_Rejects(t *testing.T) {
	f := newFixture(t)
	base := "/v1/booths/" + f.addrs.State.String() + "/quote"

	if code := f.get(t, base+"?input_mint="+key(42).String()+"&amount=1", nil); code != http.StatusConflict {
		t.Errorf("unknown mint: got %d want 409", code)
	}
	if code := f.get(t, base+"?input_mint="+testBase.String()+"&amount=-1", nil); code != http.StatusBadRequest {
		t.Errorf("bad amount: got %d want 400", code)
	}
}

// ── Buffers ───────────────────────────────────────────────────────────────────

func TestGetBuffer(t *testing.T) {
	f := newFixture(t)
	buf := key(20)
	data := make([]byte, echo.HeaderSize+3)
	echo.Header{Bump: 254, Seed: 9, PayloadLen: 3}.Put(data)
	copy(data[echo.HeaderSize:], []byte{1, 2, 1})
	if err := f.store.Put(context.Background(), &account.Info{Key: buf, Owner: testProgram, Lamports: 1, Data: data}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got bufferView
	if code := f.get(t, "/v1/buffers/"+buf.String(), &got); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if got.Bump != 254 || got.Seed != 9 || !bytes.Equal(got.Payload, []byte{1, 2, 1}) {
		t.Errorf("buffer: %+v", got)
	}

	if code := f.get(t, "/v1/buffers/"+testAdmin.String(), nil); code != http.StatusNotFound {
		t.Errorf("foreign account: got %d want 404", code)
	}
}
