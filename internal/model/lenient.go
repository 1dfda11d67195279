package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// FieldText - значение поля как текст: строка как есть, число или bool
// своим JSON, null и отсутствующее поле - пустая строка
func FieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	v := strings.TrimSpace(string(raw))
	if v == "null" {
		return ""
	}
	return v
}

// DecodeConversionRequest разбирает click; ошибка только если data не объект
func DecodeConversionRequest(data json.RawMessage) (ConversionRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ConversionRequest{}, err
	}
	if fields == nil {
		return ConversionRequest{}, errors.New("click payload must be an object")
	}
	return ConversionRequest{
		Date:       FieldText(fields["date"]),
		BaseCcy:    FieldText(fields["baseCcy"]),
		BaseAmt:    FieldText(fields["baseAmt"]),
		CounterCcy: FieldText(fields["counterCcy"]),
		ID:         FieldText(fields["id"]),
	}, nil
}
