package bridge

import (
	"encoding/json"
	"sync"

	"currency-bridge/internal/model"

	"github.com/google/uuid"
)

// Transport - уже установленное соединение с сервером
type Transport interface {
	Emit(event string, payload interface{}) error
	On(event string, handler func(data json.RawMessage))
}

type Field string

const (
	FieldDate            Field = "date"
	FieldBaseCurrency    Field = "baseCcy"
	FieldBaseAmount      Field = "baseAmt"
	FieldCounterCurrency Field = "counterCcy"
)

type Status string

const (
	StatusNone    Status = ""
	StatusSuccess Status = "green"
	StatusError   Status = "red"
)

// Display - состояние блока результата
type Display struct {
	Message      string
	TargetAmount string
	Status       Status
	Visible      bool
}

// EchoLabels - подписи, повторяющие значения полей формы
type EchoLabels struct {
	Date            string
	BaseCurrency    string
	BaseAmount      string
	CounterCurrency string
}

// Renderer получает снимок после каждого изменения
type Renderer interface {
	Render(d Display, labels EchoLabels)
}

type RendererFunc func(d Display, labels EchoLabels)

func (f RendererFunc) Render(d Display, labels EchoLabels) { f(d, labels) }

type Option func(*Bridge)

// WithCorrelation помечает каждый запрос id и отбрасывает ответы на прежние запросы
func WithCorrelation() Option {
	return func(b *Bridge) { b.correlate = true }
}

func WithRenderer(r Renderer) Option {
	return func(b *Bridge) { b.renderer = r }
}

// WithForm задает начальные значения полей и их подписи
func WithForm(form model.ConversionRequest) Option {
	return func(b *Bridge) {
		b.form = form
		b.labels = EchoLabels{
			Date:            form.Date,
			BaseCurrency:    form.BaseCcy,
			BaseAmount:      form.BaseAmt,
			CounterCurrency: form.CounterCcy,
		}
	}
}

func withIDs(next func() string) Option {
	return func(b *Bridge) { b.newID = next }
}

// Bridge связывает форму с событиями click/rate. Без корреляции показывается последний пришедший ответ
type Bridge struct {
	transport Transport
	renderer  Renderer
	correlate bool
	newID     func() string

	mu      sync.Mutex
	form    model.ConversionRequest
	display Display
	labels  EchoLabels
	pending string
}

// New подписывает мост на событие rate; подписка выполняется один раз
func New(t Transport, opts ...Option) *Bridge {
	b := &Bridge{
		transport: t,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	t.On(model.EventRate, b.handleRate)
	return b
}

// Submit отправляет текущие значения формы и скрывает прошлый результат.
// Подтверждения не ждет, повторов и таймаутов нет.
func (b *Bridge) Submit() error {
	b.mu.Lock()
	req := b.form
	req.ID = ""
	if b.correlate {
		req.ID = b.newID()
		b.pending = req.ID
	}
	b.display.Visible = false
	d, l := b.display, b.labels
	b.mu.Unlock()

	b.render(d, l)
	return b.transport.Emit(model.EventClick, req)
}

// OnResponse показывает ответ сервера как есть. Возвращает false, если
// ответ отброшен корреляцией.
func (b *Bridge) OnResponse(resp model.ConversionResponse) bool {
	b.mu.Lock()
	if b.correlate && resp.ID != "" && resp.ID != b.pending {
		b.mu.Unlock()
		return false
	}
	b.pending = ""
	b.display.Message = resp.Msg
	b.display.TargetAmount = resp.Answer
	if resp.Error {
		b.display.Status = StatusError
	} else {
		b.display.Status = StatusSuccess
	}
	b.display.Visible = true
	d, l := b.display, b.labels
	b.mu.Unlock()

	b.render(d, l)
	return true
}

// OnFieldChange повторяет значение в подписи поля. Неизвестные поля
// попадают в подпись суммы.
func (b *Bridge) OnFieldChange(field Field, value string) {
	b.mu.Lock()
	switch field {
	case FieldBaseCurrency:
		b.labels.BaseCurrency = value
	case FieldCounterCurrency:
		b.labels.CounterCurrency = value
	case FieldDate:
		b.labels.Date = value
	default:
		b.labels.BaseAmount = value
	}
	d, l := b.display, b.labels
	b.mu.Unlock()

	b.render(d, l)
}

// SetField меняет значение поля формы, как это делает ввод пользователя
func (b *Bridge) SetField(field Field, value string) {
	b.mu.Lock()
	switch field {
	case FieldBaseCurrency:
		b.form.BaseCcy = value
	case FieldCounterCurrency:
		b.form.CounterCcy = value
	case FieldDate:
		b.form.Date = value
	default:
		b.form.BaseAmt = value
	}
	b.mu.Unlock()

	b.OnFieldChange(field, value)
}

func (b *Bridge) Form() model.ConversionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.form
}

func (b *Bridge) Display() Display {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.display
}

func (b *Bridge) Labels() EchoLabels {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.labels
}

func (b *Bridge) render(d Display, l EchoLabels) {
	if b.renderer != nil {
		b.renderer.Render(d, l)
	}
}

func (b *Bridge) handleRate(data json.RawMessage) {
	b.OnResponse(decodeResponse(data))
}
