package main

import (
	"brpay/src/common"
	"brpay/src/db"
	"brpay/src/models"
	"brpay/src/types"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func statusForError(err error) int {
	var apiErr *types.ApiError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case types.ERR_INVALID_REQUEST, types.ERR_INVALID_METHOD:
		return http.StatusBadRequest
	case types.ERR_NOT_FOUND:
		return http.StatusNotFound
	case types.ERR_INVALID_STATUS:
		return http.StatusConflict
	case types.ERR_INSUFFICIENT_AMOUNT:
		return http.StatusUnprocessableEntity
	case types.ERR_INVALID_SIGNATURE:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func abortWithError(ctx *gin.Context, err error) {
	var apiErr *types.ApiError
	if errors.As(err, &apiErr) {
		ctx.JSON(statusForError(err), gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": types.ERR_INTERNAL})
}

func createPayment(ctx *gin.Context, forcedMethod types.PaymentMethod) {
	var body types.CreatePaymentRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": types.ERR_INVALID_REQUEST})
		return
	}
	if forcedMethod != "" {
		body.Method = string(forcedMethod)
	}

	idempotencyKey := ctx.GetHeader("Idempotency-Key")
	txn, replayed, err := common.CreatePayment(ctx.Request.Context(), &body, idempotencyKey)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	// the replay must be visible to the caller, never a silent 200
	if replayed {
		ctx.Header("Idempotency-Status", "replayed")
		ctx.JSON(http.StatusOK, txn)
		return
	}
	if idempotencyKey != "" {
		ctx.Header("Idempotency-Status", "created")
	}
	ctx.Header("Location", fmt.Sprintf("%s/payments/%s", apiPrefix, txn.ID))
	ctx.JSON(http.StatusCreated, txn)
}

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payments", func(ctx *gin.Context) {
			createPayment(ctx, "")
		}).
		POST("/payments/pix", func(ctx *gin.Context) {
			createPayment(ctx, types.METHOD_PIX)
		}).
		POST("/payments/card", func(ctx *gin.Context) {
			createPayment(ctx, types.METHOD_CARD)
		}).
		GET("/payments", func(ctx *gin.Context) {
			var filters types.PaymentQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": types.ERR_INVALID_REQUEST})
				return
			}
			query := db.GetDb().Model(&models.Transaction{})
			if filters.Status != "" {
				query = query.Where("status = ?", filters.Status)
			}
			if filters.Method != "" {
				query = query.Where("method = ?", filters.Method)
			}
			if filters.Provider != "" {
				query = query.Where("provider = ?", filters.Provider)
			}
			var txns []models.Transaction
			if err := query.Order("created_at desc").Limit(100).Find(&txns).Error; err != nil {
				log.Printf("Error listing transactions: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not list transactions"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": txns})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			txn, err := common.GetTransaction(ctx.Param("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, txn)
		}).
		POST("/payments/:id/confirm", func(ctx *gin.Context) {
			txn, err := common.ConfirmPix(ctx.Request.Context(), ctx.Param("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, txn)
		}).
		POST("/payments/:id/capture", func(ctx *gin.Context) {
			txn, err := common.Capture(ctx.Request.Context(), ctx.Param("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, txn)
		}).
		POST("/payments/:id/cancel", func(ctx *gin.Context) {
			txn, err := common.Cancel(ctx.Request.Context(), ctx.Param("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, txn)
		}).
		POST("/payments/:id/refund", func(ctx *gin.Context) {
			var body types.RefundRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil && ctx.Request.ContentLength > 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": types.ERR_INVALID_REQUEST})
				return
			}
			txn, err := common.Refund(ctx.Request.Context(), ctx.Param("id"), body.AmountCents)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, txn)
		})
	return g
}
