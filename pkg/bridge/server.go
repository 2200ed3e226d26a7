package bridge

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenEnv names the environment variable holding the optional bearer token.
const TokenEnv = "ALTTEXT_BRIDGE_TOKEN"

// maxMessageBytes bounds a single bridge message body.
const maxMessageBytes = 1 << 20

// NewRouter exposes h over HTTP. An empty token disables authentication.
func NewRouter(h *Handler, token string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(AuthMiddleware(token))

	r.POST("/message", MessageHandler(h))
	r.GET("/proposals", ProposalsHandler(h))
	return r
}

// CORSMiddleware allows cross-origin calls from extension pages.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AuthMiddleware requires "Authorization: Bearer <token>" when token is set.
func AuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Next()
	}
}

// MessageHandler accepts a raw bridge message and writes the response, or
// 204 when the message gets none.
func MessageHandler(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, ok := h.HandleMessage(c.Request.Context(), raw)
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ProposalsHandler serves GET /proposals?onlyMissingAlt=false.
func ProposalsHandler(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		onlyMissingAlt := true
		if v := c.Query("onlyMissingAlt"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "onlyMissingAlt must be a boolean"})
				return
			}
			onlyMissingAlt = b
		}

		c.JSON(http.StatusOK, h.RequestProposals(c.Request.Context(), onlyMissingAlt))
	}
}
