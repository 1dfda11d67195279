package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"currency-bridge/internal/exchange"
	"currency-bridge/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockConversionService struct {
	mu sync.Mutex

	// Конфигурация возвращаемых значений
	MockConversion *model.Conversion
	MockError      error
	MockQuote      model.ConversionResponse
	MockCurrencies []string

	// Для отслеживания вызовов
	Called     bool
	CallCount  int
	LastFrom   string
	LastTo     string
	LastAmount string
	LastDate   string
	LastQuote  model.ConversionRequest
}

func (m *MockConversionService) Convert(ctx context.Context, base, quote, amount, date string) (*model.Conversion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Called = true
	m.CallCount++
	m.LastFrom = base
	m.LastTo = quote
	m.LastAmount = amount
	m.LastDate = date
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockConversion, nil
}

func (m *MockConversionService) Quote(ctx context.Context, req model.ConversionRequest) model.ConversionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Called = true
	m.CallCount++
	m.LastQuote = req
	resp := m.MockQuote
	resp.ID = req.ID
	return resp
}

func (m *MockConversionService) Currencies(ctx context.Context) (string, []string, error) {
	if m.MockError != nil {
		return "", nil, m.MockError
	}
	return "2024-03-02", m.MockCurrencies, nil
}

func (m *MockConversionService) LastRequest() model.ConversionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastQuote
}

func (m *MockConversionService) WasCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Called
}

// setupTestRouter создаёт тестовый роутер с хендлером
func setupTestRouter(service *MockConversionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := NewCurrencyHandler(service)
	router.GET("/convert", handler.Convert)
	router.GET("/currencies", handler.Currencies)

	return router
}

// performRequest выполняет тестовый запрос
func performRequest(router *gin.Engine, method, url string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func conversion(result, rate string) *model.Conversion {
	return &model.Conversion{
		Date:            "2024-03-02",
		ConvertedAmount: decimal.RequireFromString(result),
		Rate:            decimal.RequireFromString(rate),
	}
}

func TestCurrencyHandler_Convert_Success(t *testing.T) {
	mockService := &MockConversionService{MockConversion: conversion("85.23", "0.8523")}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/convert?from=USD&to=EUR&amount=100&date=2024-03-02")
	assert.Equal(t, http.StatusOK, w.Code, "Ожидался статус 200 OK, получили: %d", w.Code)

	var response model.ConvertResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err, "Ошибка парсинга JSON: %s", err)
	assert.Equal(t, "USD", response.From)
	assert.Equal(t, "EUR", response.To)
	assert.Equal(t, "2024-03-02", response.Date)
	assert.Equal(t, 100.0, response.Amount)
	assert.Equal(t, 0.8523, response.Rate)
	assert.Equal(t, 85.23, response.Result)

	assert.True(t, mockService.Called, "Сервис не был вызван")
	assert.Equal(t, "USD", mockService.LastFrom)
	assert.Equal(t, "EUR", mockService.LastTo)
	assert.Equal(t, "100", mockService.LastAmount)
	assert.Equal(t, "2024-03-02", mockService.LastDate)
}

func TestCurrencyHandler_Convert_ServiceError(t *testing.T) {
	mockService := &MockConversionService{MockError: assert.AnError}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/convert?from=USD&to=EUR&amount=100")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var errorResponse model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errorResponse))
	assert.Equal(t, "Conversion failed", errorResponse.Error)
	assert.Contains(t, errorResponse.Details, "assert.AnError")
}

func TestCurrencyHandler_Convert_RateLimited(t *testing.T) {
	mockService := &MockConversionService{
		MockError: fmt.Errorf("%w. Rate limit is 1 request per second.", exchange.ErrRateLimited),
	}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/convert?from=USD&to=EUR&amount=100&date=2023-01-01")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCurrencyHandler_Convert_ValidationError_CurrencyLength(t *testing.T) {
	mockService := &MockConversionService{}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/convert?from=US&to=EUR&amount=100")
	assert.Equal(t, http.StatusBadRequest, w.Code, "Ожидался статус 400 при неправильной валюте")

	var errorResponse model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errorResponse))
	assert.Equal(t, "Invalid request", errorResponse.Error)
	assert.Contains(t, errorResponse.Details, "min",
		"Должна быть ошибка о длине валюты. Получено: %s", errorResponse.Details)
	assert.False(t, mockService.Called, "Сервис не должен вызываться при ошибке валидации")
}

func TestCurrencyHandler_Convert_ValidationError_NegativeAmount(t *testing.T) {
	mockService := &MockConversionService{}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/convert?from=USD&to=EUR&amount=-100")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errorResponse model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errorResponse))
	assert.Equal(t, "Invalid request", errorResponse.Error)
	assert.Contains(t, errorResponse.Details, "min")
	assert.False(t, mockService.Called)
}

func TestCurrencyHandler_Convert_MissingParameters(t *testing.T) {
	testCases := []struct {
		name        string
		url         string
		description string
	}{
		{name: "MissingFrom", url: "/convert?to=EUR&amount=100", description: "Отсутствует параметр 'from'"},
		{name: "MissingTo", url: "/convert?from=USD&amount=100", description: "Отсутствует параметр 'to'"},
		{name: "MissingAmount", url: "/convert?from=USD&to=EUR", description: "Отсутствует параметр 'amount'"},
		{name: "AllMissing", url: "/convert", description: "Все параметры отсутствуют"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &MockConversionService{}
			router := setupTestRouter(mockService)

			w := performRequest(router, "GET", tc.url)

			assert.Equal(t, http.StatusBadRequest, w.Code,
				"Для случая '%s' ожидался статус 400", tc.description)
			assert.False(t, mockService.Called,
				"Для случая '%s' сервис не должен вызываться", tc.description)
		})
	}
}

func TestCurrencyHandler_Convert_InvalidNumberFormat(t *testing.T) {
	mockService := &MockConversionService{}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/convert?from=USD&to=EUR&amount=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errorResponse model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errorResponse))
	assert.Equal(t, "Invalid request", errorResponse.Error)
	assert.Contains(t, errorResponse.Details, "parsing")
	assert.False(t, mockService.Called)
}

func TestCurrencyHandler_Currencies(t *testing.T) {
	mockService := &MockConversionService{MockCurrencies: []string{"eur", "usd"}}
	router := setupTestRouter(mockService)

	w := performRequest(router, "GET", "/currencies")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2024-03-02","currencies":["eur","usd"]}`, w.Body.String())

	mockService.MockError = assert.AnError
	w = performRequest(router, "GET", "/currencies")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) HealthCheck(ctx context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name       string
		redis      Pinger
		wantStatus string
		wantRedis  string
	}{
		{"RedisDisabled", nil, "healthy", "disabled"},
		{"RedisOK", stubPinger{}, "healthy", "ok"},
		{"RedisDown", stubPinger{err: fmt.Errorf("connection refused")}, "degraded", "unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", NewHealthHandler(tc.redis).HealthCheck)

			w := performRequest(router, "GET", "/health")
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantStatus, body["status"])
			assert.Equal(t, tc.wantRedis, body["redis"])
		})
	}
}
