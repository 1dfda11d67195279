package model

import "github.com/shopspring/decimal"

// Имена событий сокета
const (
	EventClick = "click"
	EventRate  = "rate"
)

// ConversionRequest - событие click от клиента
type ConversionRequest struct {
	Date       string `json:"date"`
	BaseCcy    string `json:"baseCcy"`
	BaseAmt    string `json:"baseAmt"`
	CounterCcy string `json:"counterCcy"`
	ID         string `json:"id,omitempty"` // только при включенной корреляции
}

// ConversionResponse - событие rate от сервера
type ConversionResponse struct {
	Msg    string `json:"msg"`
	Answer string `json:"answer"`
	Error  bool   `json:"error"`
	ID     string `json:"id,omitempty"`
}

// RateTable - курсы за один день относительно USD, формат внешнего API
type RateTable struct {
	Date string             `json:"date"`
	USD  map[string]float64 `json:"usd"`
}

// Conversion - результат пересчета суммы
type Conversion struct {
	Base            string
	Quote           string
	Date            string
	Amount          decimal.Decimal
	ConvertedAmount decimal.Decimal
	Rate            decimal.Decimal
}

// ConvertRequest - запрос на конвертацию по HTTP
type ConvertRequest struct {
	From   string  `form:"from" binding:"required,min=3,max=5"` // form вместо json!
	To     string  `form:"to" binding:"required,min=3,max=5"`
	Amount float64 `form:"amount" binding:"required,min=0.01"`
	Date   string  `form:"date"`
}

// ConvertResponse - ответ на конвертацию
type ConvertResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
	Result float64 `json:"result"`
}

// CurrenciesResponse - список доступных валют
type CurrenciesResponse struct {
	Date       string   `json:"date"`
	Currencies []string `json:"currencies"`
}

// ErrorResponse - структура для ошибок
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
