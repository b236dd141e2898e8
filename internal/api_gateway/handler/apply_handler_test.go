package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coa-classifier/internal/domain/account"
	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/engine"
)

type MockApplyService struct {
	mock.Mock
}

func (m *MockApplyService) AnalyzeImpact(ctx context.Context, code string) (*engine.ImpactReport, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.ImpactReport), args.Error(1)
}

func (m *MockApplyService) RequestApply(ctx context.Context, request *shared.RetroApplyRequest) (*shared.RetroApplyRequest, bool, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*shared.RetroApplyRequest), args.Bool(1), args.Error(2)
}

func TestApplyHandler_AnalyzeImpact(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		report := &engine.ImpactReport{
			AccountCode:          "5000-1000-001-001",
			AffectedRecords:      6,
			AffectedReports:      []string{"2025-01", "2025-02", "2025-03"},
			TotalFinancialImpact: decimal.NewFromInt(482300),
		}
		mockService.On("AnalyzeImpact", mock.Anything, "5000-1000-001-001").Return(report, nil)

		router := gin.Default()
		router.GET("/impact/:code", handler.AnalyzeImpact)

		req, _ := http.NewRequest(http.MethodGet, "/impact/5000-1000-001-001", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevel struct {
			Data ImpactReportResponse `json:"data"`
		}
		err := json.Unmarshal(rr.Body.Bytes(), &topLevel)
		require.NoError(t, err)
		assert.Equal(t, "5000-1000-001-001", topLevel.Data.AccountCode)
		assert.Equal(t, 6, topLevel.Data.AffectedRecords)
		assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, topLevel.Data.AffectedReports)
		assert.Equal(t, "482300", topLevel.Data.TotalFinancialImpact)
	})

	t.Run("MalformedCode", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		mockService.On("AnalyzeImpact", mock.Anything, "bogus").Return(nil, account.ErrMalformedCode{Code: "bogus"})

		router := gin.Default()
		router.GET("/impact/:code", handler.AnalyzeImpact)

		req, _ := http.NewRequest(http.MethodGet, "/impact/bogus", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		mockService.On("AnalyzeImpact", mock.Anything, "5000-1000-001-001").Return(nil, errors.New("mongo down"))

		router := gin.Default()
		router.GET("/impact/:code", handler.AnalyzeImpact)

		req, _ := http.NewRequest(http.MethodGet, "/impact/5000-1000-001-001", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestApplyHandler_Apply(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	validBody := func() ApplyChangesRequest {
		return ApplyChangesRequest{
			Changes: []ClassificationChangeRequest{
				{
					AccountCode:       "5000-1000-001-001",
					Category:          "Costos",
					Classification:    "Costo Directo",
					SubClassification: "Material",
					EffectiveFrom:     "2025-01-01T00:00:00Z",
				},
			},
			RequestedBy: "analyst@example.com",
		}
	}

	t.Run("Accepted", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		var captured *shared.RetroApplyRequest
		mockService.On("RequestApply", mock.Anything, mock.MatchedBy(func(req *shared.RetroApplyRequest) bool {
			captured = req
			return len(req.Changes) == 1 && req.Changes[0].AccountCode == "5000-1000-001-001"
		})).Return(&shared.RetroApplyRequest{
			RequestID:       uuid.New(),
			AffectedRecords: 6,
			AffectedReports: []string{"2025-01", "2025-02", "2025-03"},
			FinancialDelta:  decimal.NewFromInt(482300),
		}, false, nil)

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		jsonBody, _ := json.Marshal(validBody())
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		require.NotNil(t, captured)
		assert.NotEqual(t, uuid.Nil, captured.RequestID)
		assert.Equal(t, "analyst@example.com", captured.RequestedBy)

		var topLevel struct {
			Data ApplyAcceptedResponse `json:"data"`
		}
		err := json.Unmarshal(rr.Body.Bytes(), &topLevel)
		require.NoError(t, err)
		assert.Equal(t, string(shared.ApplyStatusPending), topLevel.Data.Status)
		assert.Equal(t, 6, topLevel.Data.AffectedRecords)
		mockService.AssertExpectations(t)
	})

	t.Run("IdempotentReplayReturns200", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		requestID := uuid.New()
		mockService.On("RequestApply", mock.Anything, mock.MatchedBy(func(req *shared.RetroApplyRequest) bool {
			return req.RequestID == requestID
		})).Return(&shared.RetroApplyRequest{
			RequestID:       requestID,
			AffectedRecords: 6,
		}, true, nil)

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		body := validBody()
		body.RequestID = requestID.String()
		jsonBody, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("InvalidRequestID", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		body := validBody()
		body.RequestID = "not-a-uuid"
		jsonBody, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "RequestApply")
	})

	t.Run("InvalidEffectiveFrom", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		body := validBody()
		body.Changes[0].EffectiveFrom = "01/01/2025"
		jsonBody, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "RequestApply")
	})

	t.Run("NoChanges", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		mockService.On("RequestApply", mock.Anything, mock.Anything).Return(nil, false, shared.ErrNoChanges)

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		jsonBody := []byte(`{"changes": []}`)
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MalformedAccountCode", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		mockService.On("RequestApply", mock.Anything, mock.Anything).Return(nil, false, shared.ErrInvalidAccountCode)

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		body := validBody()
		body.Changes[0].AccountCode = "what"
		jsonBody, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockApplyService)
		handler := NewApplyHandler(logger, mockService)

		mockService.On("RequestApply", mock.Anything, mock.Anything).Return(nil, false, errors.New("kafka unavailable"))

		router := gin.Default()
		router.POST("/classifications/apply", handler.Apply)

		jsonBody, _ := json.Marshal(validBody())
		req, _ := http.NewRequest(http.MethodPost, "/classifications/apply", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
