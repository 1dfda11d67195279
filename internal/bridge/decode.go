package bridge

import (
	"encoding/json"
	"strings"

	"currency-bridge/internal/model"
)

// decodeResponse не падает на чужих типах; ошибкой считается только литерал true
func decodeResponse(data json.RawMessage) model.ConversionResponse {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return model.ConversionResponse{}
	}
	var errFlag bool
	if raw, ok := fields["error"]; ok {
		errFlag = strings.TrimSpace(string(raw)) == "true"
	}
	return model.ConversionResponse{
		Msg:    model.FieldText(fields["msg"]),
		Answer: model.FieldText(fields["answer"]),
		Error:  errFlag,
		ID:     model.FieldText(fields["id"]),
	}
}
