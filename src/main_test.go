package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// stubAdapter lets handler tests drive the orchestration flow without any
// outbound call.
type stubAdapter struct {
	name   string
	status types.TransactionStatus
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Charge(ctx context.Context, params *providers.ChargeParams) (*providers.ChargeResult, error) {
	return &providers.ChargeResult{
		Success:           true,
		Status:            a.status,
		Provider:          a.name,
		ProviderReference: "stub_ref_1",
		Raw:               types.JSONB{"id": "stub_ref_1", "status": string(a.status)},
	}, nil
}

type TestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Mock   sqlmock.Sqlmock
	Router *gin.Engine
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	registerValidators()
	providers.RegisterDefaults()
	providers.Register(&stubAdapter{name: "stub-paid", status: types.TRANSACTION_PAID})
}

func (s *TestSuite) SetupTest() {
	gormDB, mock := db.GetMockDB()
	s.DB = gormDB
	s.Mock = mock
	s.Router = setupRouter()
}

func (s *TestSuite) perform(method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func transactionRows(id uuid.UUID, status types.TransactionStatus, method types.PaymentMethod, provider string, amountCents int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "amount", "amount_cents", "currency", "method", "status", "capture", "provider"}).
		AddRow(id.String(), float64(amountCents)/100, amountCents, "BRL", string(method), string(status), true, provider)
}

// expectations for the full creation flow: insert + created event, provider
// result metadata merge, then the status transition with its event
func (s *TestSuite) expectCreateFlow(statusChanges bool) {
	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`INSERT INTO "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	s.Mock.ExpectQuery(`INSERT INTO "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.Mock.ExpectCommit()

	s.Mock.ExpectBegin()
	s.Mock.ExpectExec(`UPDATE "transactions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.Mock.ExpectCommit()

	s.Mock.ExpectBegin()
	if statusChanges {
		s.Mock.ExpectExec(`UPDATE "transactions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	s.Mock.ExpectQuery(`INSERT INTO "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	s.Mock.ExpectCommit()
}

func (s *TestSuite) TestHealth() {
	w := s.perform(http.MethodGet, "/health", nil, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *TestSuite) TestCreateCardPayment() {
	s.expectCreateFlow(true)

	body := []byte(`{"amount_cents":5000,"currency":"BRL","method":"card","provider":"stub-paid"}`)
	w := s.perform(http.MethodPost, "/api/v1/payments", body, nil)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	rjson := w.Body.String()
	assert.Equal(s.T(), "paid", gjson.Get(rjson, "status").String())
	assert.Equal(s.T(), int64(5000), gjson.Get(rjson, "amount_cents").Int())
	assert.Equal(s.T(), "stub-paid", gjson.Get(rjson, "provider").String())
	assert.NotEmpty(s.T(), w.Header().Get("Location"))
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestCreatePaymentRejectsUnknownMethod() {
	body := []byte(`{"amount_cents":1000,"currency":"BRL","method":"boleto"}`)
	w := s.perform(http.MethodPost, "/api/v1/payments", body, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestCreatePaymentRejectsBadCurrency() {
	body := []byte(`{"amount_cents":1000,"currency":"REAIS","method":"pix"}`)
	w := s.perform(http.MethodPost, "/api/v1/payments", body, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestIdempotentReplay() {
	// first call: key not bound yet, insert wins, full creation flow follows
	s.Mock.ExpectQuery(`SELECT (.+) FROM "idempotency_keys"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "transaction_id"}))
	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`INSERT INTO "idempotency_keys"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.Mock.ExpectCommit()
	s.expectCreateFlow(true)

	body := []byte(`{"amount_cents":2500,"currency":"BRL","method":"card","provider":"stub-paid"}`)
	headers := map[string]string{"Idempotency-Key": "key-123"}
	first := s.perform(http.MethodPost, "/api/v1/payments/card", body, headers)

	assert.Equal(s.T(), http.StatusCreated, first.Code)
	assert.Equal(s.T(), "created", first.Header().Get("Idempotency-Status"))
	firstID := gjson.Get(first.Body.String(), "id").String()
	assert.NotEmpty(s.T(), firstID)

	// replay: key found, stored transaction served back, no new resource
	txnID := uuid.MustParse(firstID)
	s.Mock.ExpectQuery(`SELECT (.+) FROM "idempotency_keys"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "transaction_id"}).
			AddRow(1, "key-123", txnID.String()))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PAID, types.METHOD_CARD, "stub-paid", 2500))

	second := s.perform(http.MethodPost, "/api/v1/payments/card", body, headers)

	assert.Equal(s.T(), http.StatusOK, second.Code)
	assert.Equal(s.T(), "replayed", second.Header().Get("Idempotency-Status"))
	assert.Equal(s.T(), firstID, gjson.Get(second.Body.String(), "id").String())
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestCaptureAuthorizedTransaction() {
	txnID := uuid.New()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_AUTHORIZED, types.METHOD_CARD, "mock", 9999))
	s.Mock.ExpectBegin()
	s.Mock.ExpectExec(`UPDATE "transactions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.Mock.ExpectQuery(`INSERT INTO "transaction_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.Mock.ExpectCommit()

	w := s.perform(http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/capture", txnID), nil, nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "status").String())
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestCaptureAlreadyPaidConflicts() {
	txnID := uuid.New()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PAID, types.METHOD_CARD, "mock", 9999))

	w := s.perform(http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/capture", txnID), nil, nil)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	assert.Equal(s.T(), string(types.ERR_INVALID_STATUS), gjson.Get(w.Body.String(), "code").String())
	// no writes may follow an illegal transition
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestRefundExceedingAmount() {
	txnID := uuid.New()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(transactionRows(txnID, types.TRANSACTION_PAID, types.METHOD_CARD, "mock", 1000))

	body := []byte(`{"amount_cents":5000}`)
	w := s.perform(http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/refund", txnID), body, nil)

	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(s.T(), string(types.ERR_INSUFFICIENT_AMOUNT), gjson.Get(w.Body.String(), "code").String())
}

func (s *TestSuite) TestGetUnknownTransaction() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := s.perform(http.MethodGet, fmt.Sprintf("/api/v1/payments/%s", uuid.New()), nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w = s.perform(http.MethodGet, "/api/v1/payments/not-a-uuid", nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func TestSuiteRun(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
