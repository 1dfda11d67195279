package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"currency-bridge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	Event   string
	Payload interface{}
}

// MockTransport записывает отправленные события и позволяет имитировать входящие
type MockTransport struct {
	mu       sync.Mutex
	Emitted  []emitted
	Handlers map[string][]func(json.RawMessage)
	EmitErr  error
}

func newMockTransport() *MockTransport {
	return &MockTransport{Handlers: make(map[string][]func(json.RawMessage))}
}

func (m *MockTransport) Emit(event string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emitted = append(m.Emitted, emitted{Event: event, Payload: payload})
	return m.EmitErr
}

func (m *MockTransport) On(event string, handler func(json.RawMessage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[event] = append(m.Handlers[event], handler)
}

func (m *MockTransport) Deliver(event, raw string) {
	m.mu.Lock()
	handlers := m.Handlers[event]
	m.mu.Unlock()
	for _, h := range handlers {
		h(json.RawMessage(raw))
	}
}

func filledBridge(t *testing.T, tr *MockTransport, opts ...Option) *Bridge {
	t.Helper()
	b := New(tr, opts...)
	b.SetField(FieldDate, "2024-01-01")
	b.SetField(FieldBaseCurrency, "USD")
	b.SetField(FieldBaseAmount, "100")
	b.SetField(FieldCounterCurrency, "EUR")
	return b
}

func TestNew_SubscribesOnce(t *testing.T) {
	tr := newMockTransport()
	New(tr)

	assert.Len(t, tr.Handlers[model.EventRate], 1)
	assert.Empty(t, tr.Emitted)
}

func TestSubmit_EmitsFormSnapshot(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr)

	require.NoError(t, b.Submit())

	require.Len(t, tr.Emitted, 1)
	assert.Equal(t, model.EventClick, tr.Emitted[0].Event)
	raw, err := json.Marshal(tr.Emitted[0].Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01","baseCcy":"USD","baseAmt":"100","counterCcy":"EUR"}`, string(raw))
}

func TestSubmit_SendsEmptyFieldsAsIs(t *testing.T) {
	tr := newMockTransport()
	b := New(tr)

	require.NoError(t, b.Submit())

	raw, err := json.Marshal(tr.Emitted[0].Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"","baseCcy":"","baseAmt":"","counterCcy":""}`, string(raw))
}

func TestSubmit_HidesResultRegardlessOfState(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr)

	b.OnResponse(model.ConversionResponse{Msg: "old", Answer: "1"})
	require.True(t, b.Display().Visible)

	require.NoError(t, b.Submit())
	assert.False(t, b.Display().Visible)

	require.NoError(t, b.Submit())
	assert.False(t, b.Display().Visible)
}

func TestSubmit_ReturnsTransportError(t *testing.T) {
	tr := newMockTransport()
	tr.EmitErr = fmt.Errorf("queue full")
	b := filledBridge(t, tr)

	assert.EqualError(t, b.Submit(), "queue full")
	assert.False(t, b.Display().Visible)
}

func TestOnResponse_Success(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr)
	require.NoError(t, b.Submit())

	tr.Deliver(model.EventRate, `{"msg":"1 USD = 0.9 EUR","answer":"90","error":false}`)

	d := b.Display()
	assert.Equal(t, "90", d.TargetAmount)
	assert.Equal(t, "1 USD = 0.9 EUR", d.Message)
	assert.Equal(t, StatusSuccess, d.Status)
	assert.True(t, d.Visible)
}

func TestOnResponse_Error(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr)
	b.OnResponse(model.ConversionResponse{Msg: "ok", Answer: "90"})
	require.NoError(t, b.Submit())

	tr.Deliver(model.EventRate, `{"msg":"rate unavailable","answer":"","error":true}`)

	d := b.Display()
	assert.Equal(t, StatusError, d.Status)
	assert.Empty(t, d.TargetAmount)
	assert.Equal(t, "rate unavailable", d.Message)
	assert.True(t, d.Visible)
}

func TestOnResponse_MalformedRenderedAsIs(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want Display
	}{
		{"MissingFields", `{}`, Display{Status: StatusSuccess, Visible: true}},
		{"NumericAnswer", `{"msg":"done","answer":90.5,"error":false}`, Display{Message: "done", TargetAmount: "90.5", Status: StatusSuccess, Visible: true}},
		{"NullAnswer", `{"msg":"bad","answer":null,"error":true}`, Display{Message: "bad", Status: StatusError, Visible: true}},
		{"TruthyNotTrue", `{"msg":"x","error":"true"}`, Display{Message: "x", Status: StatusSuccess, Visible: true}},
		{"NotAnObject", `"surprise"`, Display{Status: StatusSuccess, Visible: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newMockTransport()
			b := New(tr)
			tr.Deliver(model.EventRate, tc.raw)
			assert.Equal(t, tc.want, b.Display())
		})
	}
}

func TestOnFieldChange_OnlyMatchingLabel(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr)
	before := b.Labels()

	b.OnFieldChange(FieldDate, "2024-02-02")

	after := b.Labels()
	assert.Equal(t, "2024-02-02", after.Date)
	assert.Equal(t, before.BaseCurrency, after.BaseCurrency)
	assert.Equal(t, before.BaseAmount, after.BaseAmount)
	assert.Equal(t, before.CounterCurrency, after.CounterCurrency)
	// подписи не трогают значения формы
	assert.Equal(t, "2024-01-01", b.Form().Date)
}

func TestOnFieldChange_Dispatch(t *testing.T) {
	tr := newMockTransport()
	b := New(tr)

	b.OnFieldChange(FieldBaseCurrency, "usd")
	b.OnFieldChange(FieldCounterCurrency, "eur")
	b.OnFieldChange(FieldBaseAmount, "12")
	b.OnFieldChange(Field("something-else"), "13")

	assert.Equal(t, EchoLabels{BaseCurrency: "usd", CounterCurrency: "eur", BaseAmount: "13"}, b.Labels())
}

func TestWithForm_PopulatesLabels(t *testing.T) {
	tr := newMockTransport()
	form := model.ConversionRequest{Date: "2024-01-01", BaseCcy: "usd", BaseAmt: "1", CounterCcy: "eur"}
	b := New(tr, WithForm(form))

	assert.Equal(t, form, b.Form())
	assert.Equal(t, EchoLabels{Date: "2024-01-01", BaseCurrency: "usd", BaseAmount: "1", CounterCurrency: "eur"}, b.Labels())
}

func TestTwoSubmissions_OneResponse_LastWins(t *testing.T) {
	tr := newMockTransport()
	renders := 0
	b := filledBridge(t, tr, WithRenderer(RendererFunc(func(d Display, l EchoLabels) {
		if d.Visible {
			renders++
		}
	})))

	require.NoError(t, b.Submit())
	b.SetField(FieldBaseAmount, "200")
	require.NoError(t, b.Submit())
	require.Len(t, tr.Emitted, 2)

	tr.Deliver(model.EventRate, `{"msg":"As of 2024-01-01, 100 USD is equivalent to 90 EUR.","answer":"90","error":false}`)

	// ответ относится к первому запросу, но показывается как есть
	assert.Equal(t, 1, renders)
	assert.Equal(t, "90", b.Display().TargetAmount)
	assert.True(t, b.Display().Visible)
}

func TestCorrelation_DropsStaleResponses(t *testing.T) {
	tr := newMockTransport()
	ids := []string{"first", "second"}
	b := filledBridge(t, tr, WithCorrelation(), withIDs(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	require.NoError(t, b.Submit())
	require.NoError(t, b.Submit())
	assert.Equal(t, "first", tr.Emitted[0].Payload.(model.ConversionRequest).ID)
	assert.Equal(t, "second", tr.Emitted[1].Payload.(model.ConversionRequest).ID)

	tr.Deliver(model.EventRate, `{"msg":"stale","answer":"1","error":false,"id":"first"}`)
	assert.False(t, b.Display().Visible)

	tr.Deliver(model.EventRate, `{"msg":"fresh","answer":"2","error":false,"id":"second"}`)
	assert.True(t, b.Display().Visible)
	assert.Equal(t, "fresh", b.Display().Message)

	// после ответа ожиданий нет, повтор с тем же id отбрасывается
	assert.False(t, b.OnResponse(model.ConversionResponse{Msg: "dup", ID: "second"}))
	assert.Equal(t, "fresh", b.Display().Message)
}

func TestCorrelation_AcceptsUntaggedResponses(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr, WithCorrelation())
	require.NoError(t, b.Submit())

	assert.True(t, b.OnResponse(model.ConversionResponse{Msg: "untagged", Answer: "3"}))
	assert.Equal(t, "untagged", b.Display().Message)
}

func TestCorrelationOff_NoIDOnWire(t *testing.T) {
	tr := newMockTransport()
	b := filledBridge(t, tr)
	require.NoError(t, b.Submit())

	raw, err := json.Marshal(tr.Emitted[0].Payload)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"id"`)
}
