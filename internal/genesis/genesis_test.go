package genesis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/oracle"
	"github.com/0gfoundation/exchange-booth/internal/system"
	"github.com/0gfoundation/exchange-booth/internal/token"
)

var (
	testAdmin  = address.MustParse("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	testBase   = address.MustParse("So11111111111111111111111111111111111111112")
	testQuote  = address.MustParse("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testHolder = address.MustParse("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	testPrice  = address.MustParse("HvYVEGzGj3e6yi6fQb4bxCXWVyePbn9aEfTwAWc1j2xD")
	testNow    = time.Unix(1_700_000_000, 0)
)

const testGenesis = `
accounts:
  - address: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    lamports: 5000000000
mints:
  - address: So11111111111111111111111111111111111111112
    authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    decimals: 9
  - address: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    decimals: 6
token_accounts:
  - address: 4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T
    mint: So11111111111111111111111111111111111111112
    owner: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    amount: 1000
prices:
  - address: HvYVEGzGj3e6yi6fQb4bxCXWVyePbn9aEfTwAWc1j2xD
    authority: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
    base: So11111111111111111111111111111111111111112
    quote: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    mantissa: 25
    expo: -1
`

func writeGenesis(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	return path
}

func buildTest(t *testing.T) []*account.Info {
	t.Helper()
	g, err := Load(writeGenesis(t, testGenesis))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	infos, err := g.Build(system.DefaultRent, testNow)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return infos
}

// ── Load / Build ──────────────────────────────────────────────────────────────

func TestLoad_DecodesAddresses(t *testing.T) {
	g, err := Load(writeGenesis(t, testGenesis))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(g.Accounts) != 1 || g.Accounts[0].Address != testAdmin || g.Accounts[0].Lamports != 5_000_000_000 {
		t.Errorf("accounts: %+v", g.Accounts)
	}
	if len(g.Prices) != 1 || g.Prices[0].Expo != -1 || g.Prices[0].Quote != testQuote {
		t.Errorf("prices: %+v", g.Prices)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBuild_Accounts(t *testing.T) {
	byKey := make(map[address.Address]*account.Info)
	for _, info := range buildTest(t) {
		byKey[info.Key] = info
	}
	if len(byKey) != 5 {
		t.Fatalf("accounts: got %d want 5", len(byKey))
	}

	m, err := token.LoadMint(byKey[testBase])
	if err != nil {
		t.Fatalf("LoadMint: %v", err)
	}
	if m.Supply != 1000 || m.Decimals != 9 || m.MintAuthority != testAdmin {
		t.Errorf("mint: %+v", m)
	}
	if byKey[testBase].Lamports != system.DefaultRent.MinimumBalance(token.MintSize) {
		t.Errorf("mint lamports: %d", byKey[testBase].Lamports)
	}

	a, err := token.LoadAccount(byKey[testHolder])
	if err != nil {
		t.Fatalf("LoadAccount: %v", err)
	}
	if a.Owner != testAdmin || a.Amount != 1000 {
		t.Errorf("token account: %+v", a)
	}

	price := byKey[testPrice]
	if price.Owner != oracle.ProgramID {
		t.Errorf("price owner: %s", price.Owner)
	}
	feed := oracle.NewAccountFeed(time.Minute)
	feed.Now = func() time.Time { return testNow }
	r, err := feed.Rate(context.Background(), price, testBase, testQuote)
	if err != nil || r.String() != "5/2" {
		t.Errorf("rate: got %v err=%v", r, err)
	}
}

func TestBuild_Rejects(t *testing.T) {
	cases := map[string]*Genesis{
		"duplicate":    {Accounts: []Wallet{{Address: testAdmin, Lamports: 1}, {Address: testAdmin, Lamports: 2}}},
		"no lamports":  {Accounts: []Wallet{{Address: testAdmin}}},
		"no address":   {Accounts: []Wallet{{Lamports: 1}}},
		"unknown mint": {TokenAccounts: []TokenAccount{{Address: testHolder, Mint: testQuote, Owner: testAdmin, Amount: 1}}},
		"zero price":   {Prices: []Price{{Address: testPrice, Base: testBase, Quote: testQuote}}},
		"exponent":     {Prices: []Price{{Address: testPrice, Base: testBase, Quote: testQuote, Mantissa: 1, Expo: oracle.MaxExpo + 1}}},
	}
	for name, g := range cases {
		if _, err := g.Build(system.DefaultRent, testNow); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// ── Apply ─────────────────────────────────────────────────────────────────────

func TestApply_EmptyLedger(t *testing.T) {
	store := ledger.NewMemoryStore()
	applied, err := Apply(context.Background(), store, buildTest(t), zap.NewNop())
	if err != nil || !applied {
		t.Fatalf("Apply: applied=%v err=%v", applied, err)
	}
	info, _, err := store.Get(context.Background(), testAdmin)
	if err != nil || info.Lamports != 5_000_000_000 {
		t.Errorf("admin: %+v err=%v", info, err)
	}
}

func TestApply_SkipsInitializedLedger(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	store := ledger.NewRedisStore(rdb)
	ctx := context.Background()

	// the admin has already spent part of its genesis balance
	if err := store.Put(ctx, &account.Info{Key: testAdmin, Lamports: 42}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	applied, err := Apply(ctx, store, buildTest(t), zap.NewNop())
	if err != nil || applied {
		t.Fatalf("Apply: applied=%v err=%v", applied, err)
	}
	info, _, _ := store.Get(ctx, testAdmin)
	if info.Lamports != 42 {
		t.Errorf("admin overwritten: %d", info.Lamports)
	}
	mint, _, _ := store.Get(ctx, testBase)
	if mint.Exists() {
		t.Error("mint written into an initialized ledger")
	}
}

func TestApply_Idempotent(t *testing.T) {
	store := ledger.NewMemoryStore()
	infos := buildTest(t)
	if _, err := Apply(context.Background(), store, infos, zap.NewNop()); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	applied, err := Apply(context.Background(), store, infos, zap.NewNop())
	if err != nil || applied {
		t.Errorf("second Apply: applied=%v err=%v", applied, err)
	}
}

func TestLoad_RejectsBadAddress(t *testing.T) {
	body := strings.Replace(testGenesis, "lamports: 5000000000", "lamports: 5000000000\n  - address: not-base58!\n    lamports: 1", 1)
	if _, err := Load(writeGenesis(t, body)); err == nil {
		t.Fatal("expected decode error for bad address")
	}
}
