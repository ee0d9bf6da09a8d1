package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/api/cron"
	"github.com/streamshare/streamshare/internal/api/dto"
	v1 "github.com/streamshare/streamshare/internal/api/v1"
	"github.com/streamshare/streamshare/internal/auth"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/domain/batch"
	"github.com/streamshare/streamshare/internal/domain/charge"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/testutil"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/suite"
)

type fakeChargeService struct {
	actor types.Actor
	file  *storage.File
	err   error
}

func (f *fakeChargeService) respond(actor types.Actor, id string) (*dto.ChargeResponse, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return dto.NewChargeResponse(&charge.Charge{ID: id, ChargeStatus: types.ChargeStatusPending}), nil
}

func (f *fakeChargeService) Get(ctx context.Context, actor types.Actor, id string) (*dto.ChargeResponse, error) {
	return f.respond(actor, id)
}

func (f *fakeChargeService) SubmitProof(ctx context.Context, actor types.Actor, id string, file *storage.File) (*dto.ChargeResponse, error) {
	f.file = file
	return f.respond(actor, id)
}

func (f *fakeChargeService) Approve(ctx context.Context, actor types.Actor, id string) (*dto.ChargeResponse, error) {
	return f.respond(actor, id)
}

func (f *fakeChargeService) Reject(ctx context.Context, actor types.Actor, id string, reason string) (*dto.ChargeResponse, error) {
	return f.respond(actor, id)
}

type fakeBatchService struct {
	req dto.CreateBatchRequest
}

func (f *fakeBatchService) CreateBatch(ctx context.Context, actor types.Actor, req dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	f.req = req
	return dto.NewBatchResponse(&batch.Batch{ID: "lote_1"}), nil
}

func (f *fakeBatchService) GetBatch(ctx context.Context, actor types.Actor, id string) (*dto.BatchResponse, error) {
	return dto.NewBatchResponse(&batch.Batch{ID: id}), nil
}

func (f *fakeBatchService) ConfirmBatch(ctx context.Context, actor types.Actor, id string, file *storage.File) (*dto.BatchResponse, error) {
	return dto.NewBatchResponse(&batch.Batch{ID: id}), nil
}

func (f *fakeBatchService) ApproveBatch(ctx context.Context, actor types.Actor, id string) (*dto.BatchResponse, error) {
	return dto.NewBatchResponse(&batch.Batch{ID: id}), nil
}

func (f *fakeBatchService) RejectBatch(ctx context.Context, actor types.Actor, id string, reason string) (*dto.BatchResponse, error) {
	return dto.NewBatchResponse(&batch.Batch{ID: id}), nil
}

func (f *fakeBatchService) CancelBatch(ctx context.Context, actor types.Actor, id string, reason string) (*dto.BatchResponse, error) {
	return dto.NewBatchResponse(&batch.Batch{ID: id}), nil
}

type fakeBillingService struct {
	actor types.Actor
	req   *dto.BillingCycleRequest
}

func (f *fakeBillingService) ProcessBillingCycle(ctx context.Context, req *dto.BillingCycleRequest) (*dto.BillingCycleResponse, error) {
	f.actor, _ = types.GetActor(ctx)
	f.req = req
	return &dto.BillingCycleResponse{Renewed: 1}, nil
}

func (f *fakeBillingService) ExpireBatches(ctx context.Context) (*dto.ExpireBatchesResponse, error) {
	return &dto.ExpireBatchesResponse{Expired: []string{"lote_1"}}, nil
}

type fakeAccountPlanService struct{}

func (f *fakeAccountPlanService) CheckPlanDowngrades(ctx context.Context) (*dto.PlanCheckResponse, error) {
	return &dto.PlanCheckResponse{Checked: 2}, nil
}

type RouterSuite struct {
	suite.Suite
	cfg     *config.Configuration
	db      *testutil.MockPostgresClient
	charges *fakeChargeService
	batches *fakeBatchService
	billing *fakeBillingService
	router  *gin.Engine
	token   string
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.cfg = config.GetDefaultConfig()
	s.cfg.Billing.MaxProofSizeBytes = 1024
	log := logger.NewNoopLogger()

	s.db = testutil.NewMockPostgresClient(log)
	s.charges = &fakeChargeService{}
	s.batches = &fakeBatchService{}
	s.billing = &fakeBillingService{}

	s.router = NewRouter(Handlers{
		Health:      v1.NewHealthHandler(s.db, log),
		Charge:      v1.NewChargeHandler(s.charges, s.cfg, log),
		Batch:       v1.NewBatchHandler(s.batches, s.cfg, log),
		CronBilling: cron.NewBillingHandler(s.billing, log),
		CronPlans:   cron.NewAccountPlanHandler(&fakeAccountPlanService{}, log),
	}, s.cfg, log, nil)

	token, err := auth.NewProvider(s.cfg).GenerateToken(auth.Claims{UserID: "user_1", AccountID: "acc_1", IsAdmin: true}, time.Hour)
	s.Require().NoError(err)
	s.token = token
}

func (s *RouterSuite) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) authed(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(types.HeaderAuthorization, "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (s *RouterSuite) proofRequest(path string, data []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "comprovante.png")
	s.Require().NoError(err)
	_, err = part.Write(data)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(types.HeaderAuthorization, "Bearer "+s.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *RouterSuite) TestHealth() {
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))

	s.db.PingErr = ierr.NewError("down").Mark(ierr.ErrDatabase)
	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(types.HeaderRequestID, "req-123")

	w := s.do(req)
	s.Equal("req-123", w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestUserRoutesRequireToken() {
	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/charges/cob_1", nil))
	s.Equal(http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/charges/cob_1", nil)
	req.Header.Set(types.HeaderAuthorization, "Token "+s.token)
	w = s.do(req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestGetChargePassesActor() {
	w := s.do(s.authed(http.MethodGet, "/v1/charges/cob_1", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(types.Actor{UserID: "user_1", AccountID: "acc_1", IsAdmin: true}, s.charges.actor)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("cob_1", body["id"])
	s.Equal("pendente", body["status"])
}

func (s *RouterSuite) TestServiceErrorsAreRendered() {
	s.charges.err = ierr.NewError("charge not found").
		WithHint("Charge not found").
		Mark(ierr.ErrNotFound)

	w := s.do(s.authed(http.MethodPost, "/v1/charges/cob_1/approve", nil))
	s.Equal(http.StatusNotFound, w.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.False(body.Success)
	s.Equal("Charge not found", body.Error.Message)
}

func (s *RouterSuite) TestSubmitProof() {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}

	w := s.do(s.proofRequest("/v1/charges/cob_1/proof", data))
	s.Equal(http.StatusOK, w.Code)
	s.Require().NotNil(s.charges.file)
	s.Equal("comprovante.png", s.charges.file.Name)
	s.Equal(data, s.charges.file.Data)
}

func (s *RouterSuite) TestSubmitProofTooLarge() {
	w := s.do(s.proofRequest("/v1/charges/cob_1/proof", make([]byte, 2048)))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Nil(s.charges.file)
}

func (s *RouterSuite) TestSubmitProofWithoutFile() {
	w := s.do(s.authed(http.MethodPost, "/v1/charges/cob_1/proof", nil))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestRejectReasonTooLong() {
	body, _ := json.Marshal(map[string]string{"reason": string(bytes.Repeat([]byte("a"), 501))})

	w := s.do(s.authed(http.MethodPost, "/v1/charges/cob_1/reject", body))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestCreateBatch() {
	body, _ := json.Marshal(map[string]any{"charge_ids": []string{"cob_1", "cob_2"}})

	w := s.do(s.authed(http.MethodPost, "/v1/batches", body))
	s.Equal(http.StatusCreated, w.Code)
	s.Equal([]string{"cob_1", "cob_2"}, s.batches.req.ChargeIDs)
}

func (s *RouterSuite) TestCronRequiresSecret() {
	w := s.do(httptest.NewRequest(http.MethodPost, "/cron/billing/cycle", nil))
	s.Equal(http.StatusUnauthorized, w.Code)

	// a user token is not enough
	w = s.do(s.authed(http.MethodPost, "/cron/billing/cycle", nil))
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Nil(s.billing.req)
}

func (s *RouterSuite) TestCronBillingCycle() {
	body, _ := json.Marshal(map[string]any{"account_id": "acc_1"})
	req := httptest.NewRequest(http.MethodPost, "/cron/billing/cycle", bytes.NewReader(body))
	req.Header.Set(types.HeaderCronSecret, s.cfg.Auth.CronSecret)
	req.Header.Set("Content-Type", "application/json")

	w := s.do(req)
	s.Equal(http.StatusOK, w.Code)
	s.Require().NotNil(s.billing.req)
	s.Equal("acc_1", s.billing.req.AccountID)
	s.True(s.billing.actor.IsSystem())
}

func (s *RouterSuite) TestCronRoutes() {
	for _, path := range []string{"/cron/billing/cycle", "/cron/batches/expire", "/cron/accounts/plans"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(types.HeaderCronSecret, s.cfg.Auth.CronSecret)

		w := s.do(req)
		s.Equal(http.StatusOK, w.Code, path)
	}
}
