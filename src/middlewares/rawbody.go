package middlewares

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const RawBodyKey = "raw_body"

// RawBody captures the exact request body bytes before any binding touches
// them. Signature verification must run over these bytes, not a re-encoding.
func RawBody() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("[rawbody] Error reading request body: %s\n", err.Error())
			ctx.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
		ctx.Set(RawBodyKey, body)
	}
}

func GetRawBody(ctx *gin.Context) []byte {
	if raw, ok := ctx.Get(RawBodyKey); ok {
		if body, ok := raw.([]byte); ok {
			return body
		}
	}
	return nil
}
