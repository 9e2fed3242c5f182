package main

import (
	"brpay/src/common"
	"brpay/src/config"
	"brpay/src/middlewares"
	"brpay/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func webhookRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/:provider", middlewares.RawBody(), func(ctx *gin.Context) {
		provider := ctx.Param("provider")
		payload := middlewares.GetRawBody(ctx)
		if payload == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing request body", "code": types.ERR_INVALID_REQUEST})
			return
		}

		secret := config.WebhookSecret(provider)
		signature := ctx.GetHeader("X-Webhook-Signature")
		if signature == "" {
			signature = ctx.GetHeader("X-Signature")
		}
		result := common.VerifySignature(payload, signature, secret, common.VerifyOptions{
			TimestampHeader:  ctx.GetHeader("X-Webhook-Timestamp"),
			ToleranceSeconds: config.WebhookToleranceSeconds(),
			RequireTimestamp: config.WebhookRequireTimestamp(),
		})
		if result.Skipped {
			log.Printf("[webhook] WARNING: no secret configured for %s, signature verification SKIPPED\n", provider)
		}
		if !result.OK {
			// never log payload contents here, only the failure reason
			log.Printf("[webhook] Rejected %s delivery: %s\n", provider, result.Err.Error())
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature", "code": types.ERR_INVALID_SIGNATURE})
			return
		}

		txn, err := common.ReconcileWebhook(ctx.Request.Context(), provider, payload, ctx.GetHeader("X-Webhook-Delivery"))
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		if txn == nil {
			// webhooks for unknown transactions are acknowledged, not errors
			ctx.JSON(http.StatusOK, gin.H{"received": true, "matched": false})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true, "matched": true, "status": txn.Status})
	})
	return apiv1
}
