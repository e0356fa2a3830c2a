package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/auth"
	"github.com/0gfoundation/exchange-booth/internal/runtime"
)

// Executor runs transactions; satisfied by *runtime.Runtime.
type Executor interface {
	Execute(ctx context.Context, tx runtime.Transaction) (*runtime.Receipt, error)
}

// SubmitHandler accepts transactions from authenticated operators. The
// operator vouches for the listed signers.
type SubmitHandler struct {
	exec Executor
	log  *zap.Logger
}

func NewSubmitHandler(exec Executor, log *zap.Logger) *SubmitHandler {
	return &SubmitHandler{exec: exec, log: log}
}

// Register mounts the submission route. auth.Middleware must already be
// applied to the group; the transaction is read from its signed payload.
func (h *SubmitHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/transactions", h.handleSubmit)
}

type metaRequest struct {
	Address    address.Address `json:"address"`
	IsSigner   bool            `json:"is_signer"`
	IsWritable bool            `json:"is_writable"`
}

type instructionRequest struct {
	Program  address.Address `json:"program"`
	Accounts []metaRequest   `json:"accounts"`
	Data     []byte          `json:"data"`
}

// TransactionRequest is the signed payload of a submission.
type TransactionRequest struct {
	Signers      []address.Address    `json:"signers"`
	Instructions []instructionRequest `json:"instructions"`
}

// NewTransactionRequest renders instructions in submission form.
func NewTransactionRequest(signers []address.Address, ixs ...account.Instruction) TransactionRequest {
	req := TransactionRequest{Signers: signers}
	for _, ix := range ixs {
		ir := instructionRequest{Program: ix.Program, Data: ix.Data}
		for _, m := range ix.Accounts {
			ir.Accounts = append(ir.Accounts, metaRequest{Address: m.Address, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
		}
		req.Instructions = append(req.Instructions, ir)
	}
	return req
}

func (r TransactionRequest) transaction() runtime.Transaction {
	tx := runtime.Transaction{Signers: r.Signers}
	for _, ir := range r.Instructions {
		ix := account.Instruction{Program: ir.Program, Data: ir.Data}
		for _, m := range ir.Accounts {
			ix.Accounts = append(ix.Accounts, account.Meta{Address: m.Address, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
		}
		tx.Instructions = append(tx.Instructions, ix)
	}
	return tx
}

type receiptView struct {
	ID         string            `json:"id"`
	Changed    []address.Address `json:"changed"`
	DurationMs int64             `json:"duration_ms"`
}

func (h *SubmitHandler) handleSubmit(c *gin.Context) {
	payload, ok := c.Get(auth.PayloadKey)
	raw, isBytes := payload.([]byte)
	if !ok || !isBytes {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unsigned request"})
		return
	}
	var req TransactionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction payload"})
		return
	}

	rc, err := h.exec.Execute(c.Request.Context(), req.transaction())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	h.log.Info("transaction submitted",
		zap.String("tx", rc.ID),
		zap.String("operator", c.GetString(auth.OperatorKey)),
		zap.Int("instructions", len(req.Instructions)),
	)
	c.JSON(http.StatusOK, receiptView{ID: rc.ID, Changed: rc.Changed, DurationMs: rc.Duration.Milliseconds()})
}
