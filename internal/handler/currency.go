package handler

import (
	"errors"
	"net/http"
	"strconv"

	"currency-bridge/internal/exchange"
	"currency-bridge/internal/model"
	"currency-bridge/internal/service"

	"github.com/gin-gonic/gin"
)

type CurrencyHandler struct {
	currencyService service.ConversionServiceInterface
}

func NewCurrencyHandler(currencyService service.ConversionServiceInterface) *CurrencyHandler {
	return &CurrencyHandler{
		currencyService: currencyService,
	}
}

func (h *CurrencyHandler) Convert(c *gin.Context) {
	var req model.ConvertRequest
	err := c.ShouldBindQuery(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "Invalid request",
			Details: err.Error(),
		})
		return
	}
	amount := strconv.FormatFloat(req.Amount, 'f', -1, 64)
	conv, err := h.currencyService.Convert(c.Request.Context(), req.From, req.To, amount, req.Date)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exchange.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, model.ErrorResponse{
			Error:   "Conversion failed",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, model.ConvertResponse{
		From:   req.From,
		To:     req.To,
		Date:   conv.Date,
		Amount: req.Amount,
		Rate:   conv.Rate.InexactFloat64(),
		Result: conv.ConvertedAmount.InexactFloat64(),
	})
}

// Currencies возвращает коды валют последней таблицы
func (h *CurrencyHandler) Currencies(c *gin.Context) {
	date, codes, err := h.currencyService.Currencies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Error:   "Currencies unavailable",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, model.CurrenciesResponse{Date: date, Currencies: codes})
}
