// Package auth authenticates the operators allowed to submit transactions.
// An operator signs each request with its Ethereum wallet (EIP-191); the
// signed message carries the request body, so the body cannot be swapped.
package auth

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// SignedRequest is the JSON payload inside X-Signed-Message.
type SignedRequest struct {
	Action    string          `json:"action"`
	ExpiresAt int64           `json:"expires_at"`
	Nonce     string          `json:"nonce"`
	Payload   json.RawMessage `json:"payload"`
}

const maxFutureWindow = 5 * time.Minute

// Context keys set by Middleware.
const (
	OperatorKey = "operator"
	PayloadKey  = "signed_payload"
)

// Middleware admits requests signed by one of operators for action.
func Middleware(action string, operators []common.Address, nonces NonceStore) gin.HandlerFunc {
	allowed := make(map[common.Address]bool, len(operators))
	for _, op := range operators {
		allowed[op] = true
	}
	return func(c *gin.Context) {
		operator := c.GetHeader("X-Operator-Address")
		signedMsgB64 := c.GetHeader("X-Signed-Message")
		sigHex := c.GetHeader("X-Operator-Signature")

		if operator == "" || signedMsgB64 == "" || sigHex == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth headers"})
			return
		}
		if !common.IsHexAddress(operator) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid operator address"})
			return
		}

		msgBytes, err := base64.StdEncoding.DecodeString(signedMsgB64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-Signed-Message encoding"})
			return
		}
		var req SignedRequest
		if err := json.Unmarshal(msgBytes, &req); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signed message JSON"})
			return
		}
		if req.Action != action {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "action mismatch"})
			return
		}

		now := time.Now().Unix()
		if req.ExpiresAt <= now {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "request expired"})
			return
		}
		if req.ExpiresAt > now+int64(maxFutureWindow.Seconds()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "expires_at too far in future"})
			return
		}

		sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature hex"})
			return
		}
		recovered, err := recoverOperator(msgBytes, sig)
		if err != nil || recovered != common.HexToAddress(operator) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		if !allowed[recovered] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator not allowed"})
			return
		}

		fresh, err := nonces.Claim(c.Request.Context(), req.Nonce, time.Duration(req.ExpiresAt-now)*time.Second)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "nonce already used"})
			return
		}

		c.Set(OperatorKey, recovered.Hex())
		c.Set(PayloadKey, []byte(req.Payload))
		c.Next()
	}
}
