package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"brpay/src/db"
	"brpay/src/lib/providers"
	"brpay/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func setupWebhookTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerValidators()
	providers.RegisterDefaults()
	_, mock := db.GetMockDB()
	return setupRouter(), mock
}

func postWebhook(router *gin.Engine, provider string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/"+provider, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	router, mock := setupWebhookTest(t)

	body := []byte(`{"transaction_id":"x","status":"paid"}`)
	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": "sha256=deadbeef",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(types.ERR_INVALID_SIGNATURE), gjson.Get(w.Body.String(), "code").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookReconcilesPaidStatus(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	router, mock := setupWebhookTest(t)

	txnID := uuid.New()
	body := []byte(fmt.Sprintf(`{"transaction_id":"%s","status":"approved"}`, txnID))

	mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PENDING, types.METHOD_PIX, "pix-static", 1234))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "transactions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": signBody(body, "shh"),
	})

	assert.Equal(t, http.StatusOK, w.Code)
	rjson := w.Body.String()
	assert.True(t, gjson.Get(rjson, "matched").Bool())
	assert.Equal(t, "paid", gjson.Get(rjson, "status").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// webhooks for unknown transactions are acknowledged, not errors
func TestWebhookUnknownTransaction(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	router, mock := setupWebhookTest(t)

	body := []byte(fmt.Sprintf(`{"transaction_id":"%s","status":"paid"}`, uuid.New()))
	mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": signBody(body, "shh"),
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "matched").Bool())
}

// with no secret configured, verification is skipped but processing continues
func TestWebhookSkipsVerificationWithoutSecret(t *testing.T) {
	router, mock := setupWebhookTest(t)

	body := []byte(fmt.Sprintf(`{"transaction_id":"%s","status":"paid"}`, uuid.New()))
	mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := postWebhook(router, "nosecret", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// an out-of-order webhook never regresses a settled transaction, but its
// delivery is still recorded as an audit event
func TestWebhookOutOfOrderDeliveryKeepsStatus(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	router, mock := setupWebhookTest(t)

	txnID := uuid.New()
	body := []byte(fmt.Sprintf(`{"transaction_id":"%s","status":"pending"}`, txnID))

	mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PAID, types.METHOD_CARD, "stripe", 9000))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": signBody(body, "shh"),
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", gjson.Get(w.Body.String(), "status").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// with delivery dedupe on, a re-delivered id acknowledges without touching
// the ledger again
func TestWebhookDuplicateDeliverySkipped(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	t.Setenv("WEBHOOK_DEDUPE_BY_DELIVERY_ID", "true")
	router, mock := setupWebhookTest(t)

	txnID := uuid.New()
	body := []byte(fmt.Sprintf(`{"transaction_id":"%s","status":"approved"}`, txnID))

	mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PAID, types.METHOD_PIX, "pix-static", 1234))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": signBody(body, "shh"),
		"X-Webhook-Delivery":  "dlv_42",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "matched").Bool())
	assert.Equal(t, "paid", gjson.Get(w.Body.String(), "status").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// dedupe is off by default: a re-delivery with a delivery id is absorbed by
// the state machine (paid stays paid) and still appends an audit event
func TestWebhookRedeliveryAppendsEventByDefault(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	router, mock := setupWebhookTest(t)

	txnID := uuid.New()
	body := []byte(fmt.Sprintf(`{"transaction_id":"%s","status":"approved"}`, txnID))

	mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PAID, types.METHOD_PIX, "pix-static", 1234))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": signBody(body, "shh"),
		"X-Webhook-Delivery":  "dlv_42",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", gjson.Get(w.Body.String(), "status").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRejectsNonJSONPayload(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_ACME", "shh")
	router, _ := setupWebhookTest(t)

	body := []byte(`not json`)
	w := postWebhook(router, "acme", body, map[string]string{
		"X-Webhook-Signature": signBody(body, "shh"),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
