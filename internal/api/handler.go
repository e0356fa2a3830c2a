// Package api serves a read-only HTTP view of the ledger: raw accounts,
// decoded exchange booths with their vault balances, echo buffers and
// exchange quotes.
package api

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/booth"
	"github.com/0gfoundation/exchange-booth/internal/echo"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/token"
)

// Handler wires up the inspection routes onto a Gin engine.
type Handler struct {
	store   ledger.Store
	program address.Address
	space   address.Space
	oracle  booth.Oracle
	log     *zap.Logger
}

func NewHandler(store ledger.Store, program address.Address, space address.Space, oracle booth.Oracle, log *zap.Logger) *Handler {
	return &Handler{store: store, program: program, space: space, oracle: oracle, log: log}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	// ── Raw accounts ───────────────────────────────────────────────────────
	rg.GET("/accounts", h.handleListAccounts)
	rg.GET("/accounts/:address", h.handleGetAccount)

	// ── Program views ──────────────────────────────────────────────────────
	rg.GET("/booths/:address", h.handleGetBooth)
	rg.GET("/booths/:address/quote", h.handleQuote)
	rg.GET("/buffers/:address", h.handleGetBuffer)
}

type accountView struct {
	Address    address.Address `json:"address"`
	Owner      address.Address `json:"owner"`
	Lamports   uint64          `json:"lamports"`
	Executable bool            `json:"executable"`
	Data       []byte          `json:"data"`
}

func newAccountView(info *account.Info) accountView {
	return accountView{
		Address:    info.Key,
		Owner:      info.Owner,
		Lamports:   info.Lamports,
		Executable: info.Executable,
		Data:       info.Data,
	}
}

// ── Accounts ────────────────────────────────────────────────────────────────

func (h *Handler) handleGetAccount(c *gin.Context) {
	info, ok := h.load(c, c.Param("address"))
	if !ok {
		return
	}
	if !info.Exists() {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, newAccountView(info))
}

func (h *Handler) handleListAccounts(c *gin.Context) {
	owner, err := address.Parse(c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner query parameter must be an address"})
		return
	}
	infos, err := h.store.Scan(c.Request.Context(), owner)
	if err != nil {
		h.log.Error("scan accounts", zap.String("owner", owner.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger error"})
		return
	}
	out := make([]accountView, 0, len(infos))
	for _, info := range infos {
		out = append(out, newAccountView(info))
	}
	c.JSON(http.StatusOK, out)
}

// ── Booths ──────────────────────────────────────────────────────────────────

type vaultView struct {
	Address  address.Address `json:"address"`
	Mint     address.Address `json:"mint"`
	Decimals uint8           `json:"decimals"`
	Amount   uint64          `json:"amount"`
	UIAmount string          `json:"ui_amount"`
}

type boothView struct {
	Address    address.Address `json:"address"`
	Admin      address.Address `json:"admin"`
	Oracle     address.Address `json:"oracle"`
	FeeBps     uint64          `json:"fee_bps"`
	VaultBase  vaultView       `json:"vault_base"`
	VaultQuote vaultView       `json:"vault_quote"`
}

func (h *Handler) handleGetBooth(c *gin.Context) {
	info, ok := h.load(c, c.Param("address"))
	if !ok {
		return
	}
	st, err := booth.LoadState(h.program, info)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	view := boothView{Address: info.Key, Admin: st.Admin, Oracle: st.Oracle, FeeBps: st.FeeBps}
	for _, v := range []struct {
		side booth.Side
		dst  *vaultView
	}{
		{booth.SideBase, &view.VaultBase},
		{booth.SideQuote, &view.VaultQuote},
	} {
		vault, err := h.vault(c, info.Key, st, v.side)
		if err != nil {
			fail(c, h.log, err)
			return
		}
		*v.dst = vault
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) vault(c *gin.Context, state address.Address, st *booth.State, side booth.Side) (vaultView, error) {
	addr, _, err := booth.VaultAddress(h.space, h.program, state, st.Mint(side), side)
	if err != nil {
		return vaultView{}, err
	}
	info, _, err := h.store.Get(c.Request.Context(), addr)
	if err != nil {
		return vaultView{}, err
	}
	acct, err := token.LoadAccount(info)
	if err != nil {
		return vaultView{}, err
	}
	dec := st.Decimals(side)
	return vaultView{
		Address:  addr,
		Mint:     acct.Mint,
		Decimals: dec,
		Amount:   acct.Amount,
		UIAmount: uiAmount(acct.Amount, dec),
	}, nil
}

// uiAmount renders a raw token amount in whole tokens.
func uiAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}

type quoteView struct {
	InputMint      address.Address `json:"input_mint"`
	OutputMint     address.Address `json:"output_mint"`
	Amount         uint64          `json:"amount"`
	Output         uint64          `json:"output"`
	UIOutput       string          `json:"ui_output"`
	Rate           string          `json:"rate"`
	FeeBps         uint64          `json:"fee_bps"`
	OutputDecimals uint8           `json:"output_decimals"`
}

func (h *Handler) handleQuote(c *gin.Context) {
	info, ok := h.load(c, c.Param("address"))
	if !ok {
		return
	}
	inputMint, err := address.Parse(c.Query("input_mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input_mint must be an address"})
		return
	}
	amount, err := strconv.ParseUint(c.Query("amount"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be an unsigned integer"})
		return
	}
	st, err := booth.LoadState(h.program, info)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	oracleInfo, _, err := h.store.Get(c.Request.Context(), st.Oracle)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	engine := booth.NewEngine(h.program, h.space, nil, nil, h.oracle, h.log)
	q, err := engine.Quote(c.Request.Context(), info, oracleInfo, inputMint, amount)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	outSide := booth.SideQuote
	if q.InputSide == booth.SideQuote {
		outSide = booth.SideBase
	}
	dec := st.Decimals(outSide)
	c.JSON(http.StatusOK, quoteView{
		InputMint:      q.InputMint,
		OutputMint:     q.OutputMint,
		Amount:         q.Amount,
		Output:         q.Output,
		UIOutput:       uiAmount(q.Output, dec),
		Rate:           q.Rate.FloatString(12),
		FeeBps:         q.FeeBps,
		OutputDecimals: dec,
	})
}

// ── Buffers ─────────────────────────────────────────────────────────────────

type bufferView struct {
	Address address.Address `json:"address"`
	Bump    uint8           `json:"bump"`
	Seed    uint64          `json:"seed"`
	Payload []byte          `json:"payload"`
}

func (h *Handler) handleGetBuffer(c *gin.Context) {
	info, ok := h.load(c, c.Param("address"))
	if !ok {
		return
	}
	if !info.Exists() || info.Owner != h.program {
		c.JSON(http.StatusNotFound, gin.H{"error": "buffer not found"})
		return
	}
	hdr, err := echo.ReadHeader(info.Data)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, bufferView{
		Address: info.Key,
		Bump:    hdr.Bump,
		Seed:    hdr.Seed,
		Payload: info.Data[echo.HeaderSize:],
	})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) load(c *gin.Context, raw string) (*account.Info, bool) {
	key, err := address.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return nil, false
	}
	info, _, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		h.log.Error("load account", zap.String("address", raw), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger error"})
		return nil, false
	}
	return info, true
}

// fail maps program errors onto HTTP statuses.
func fail(c *gin.Context, log *zap.Logger, err error) {
	e, ok := errs.As(err)
	if !ok {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, errs.ErrAccountNotFound), errors.Is(err, errs.ErrOwnerMismatch):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrOracleUnavailable):
		status = http.StatusBadGateway
	case e.Kind == errs.KindState:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": e.Code, "name": e.Name})
}
