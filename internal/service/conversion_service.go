package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"currency-bridge/internal/exchange"
	"currency-bridge/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	dateLayout = "2006-01-02"
	dateLatest = "latest"
	decimals   = 4

	// общая загрузка не зависит от отмены первого запроса
	loadTimeout = 10 * time.Second
)

// TableCache - второй уровень кеша таблиц (Redis)
type TableCache interface {
	GetRateTable(ctx context.Context, date string) (*model.RateTable, error)
	SetRateTable(ctx context.Context, table *model.RateTable) error
}

// ConversionServiceInterface - интерфейс для тестирования
type ConversionServiceInterface interface {
	Convert(ctx context.Context, base, quote, amount, date string) (*model.Conversion, error)
	Quote(ctx context.Context, req model.ConversionRequest) model.ConversionResponse
	Currencies(ctx context.Context) (string, []string, error)
}

type ConversionService struct {
	fetcher exchange.Fetcher
	cache   TableCache
	store   *tableStore
	group   singleflight.Group
	logger  *zap.Logger
}

// NewConversionService создает сервис; cache может быть nil
func NewConversionService(fetcher exchange.Fetcher, cache TableCache, maxDates int, logger *zap.Logger) *ConversionService {
	return &ConversionService{
		fetcher: fetcher,
		cache:   cache,
		store:   newTableStore(maxDates),
		logger:  logger,
	}
}

// Warmup загружает последнюю таблицу, чтобы список валют был доступен сразу
func (s *ConversionService) Warmup(ctx context.Context) error {
	table, err := s.load(ctx, "")
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	s.logger.Info("Rate table warmed up",
		zap.String("date", table.Date),
		zap.Int("currencies", len(table.USD)),
	)
	return nil
}

// Quote обрабатывает событие click: ошибка конвертации превращается в ответ с error=true
func (s *ConversionService) Quote(ctx context.Context, req model.ConversionRequest) model.ConversionResponse {
	conv, err := s.Convert(ctx, req.BaseCcy, req.CounterCcy, req.BaseAmt, req.Date)
	if err != nil {
		s.logger.Info("Conversion rejected",
			zap.String("date", req.Date),
			zap.String("base", req.BaseCcy),
			zap.String("quote", req.CounterCcy),
			zap.String("amount", req.BaseAmt),
			zap.Error(err),
		)
		return model.ConversionResponse{Msg: err.Error(), Error: true, ID: req.ID}
	}
	answer := conv.ConvertedAmount.String()
	return model.ConversionResponse{
		Msg: fmt.Sprintf("As of %s, %s %s is equivalent to %s %s.",
			conv.Date, req.BaseAmt, req.BaseCcy, answer, req.CounterCcy),
		Answer: answer,
		ID:     req.ID,
	}
}

// Convert пересчитывает amount из base в quote по таблице на дату
func (s *ConversionService) Convert(ctx context.Context, base, quote, amount, date string) (*model.Conversion, error) {
	table, err := s.resolveTable(ctx, strings.TrimSpace(date))
	if err != nil {
		return nil, err
	}

	baseKey := strings.ToLower(strings.TrimSpace(base))
	baseUSD := table.USD[baseKey]
	if baseUSD == 0 {
		return nil, fmt.Errorf("Unsupported BASE currency(%q). Try different currency", base)
	}
	quoteKey := strings.ToLower(strings.TrimSpace(quote))
	quoteUSD := table.USD[quoteKey]
	if quoteUSD == 0 {
		return nil, fmt.Errorf("Unsupported QUOTE currency(%q). Try different currency", quote)
	}
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("Unsupported AMOUNT type (%q). Must be a number", amount)
	}

	baseRate := decimal.NewFromFloat(baseUSD)
	quoteRate := decimal.NewFromFloat(quoteUSD)
	conv := &model.Conversion{
		Base:            baseKey,
		Quote:           quoteKey,
		Date:            table.Date,
		Amount:          value,
		ConvertedAmount: value.Div(baseRate).Mul(quoteRate).Round(decimals),
		Rate:            quoteRate.Div(baseRate).Round(decimals),
	}

	s.logger.Info("Currency conversion completed",
		zap.String("date", conv.Date),
		zap.String("from", conv.Base),
		zap.String("to", conv.Quote),
		zap.String("amount", conv.Amount.String()),
		zap.String("rate", conv.Rate.String()),
		zap.String("result", conv.ConvertedAmount.String()),
	)
	return conv, nil
}

// Currencies возвращает дату и отсортированные коды валют последней таблицы
func (s *ConversionService) Currencies(ctx context.Context) (string, []string, error) {
	table, err := s.resolveTable(ctx, dateLatest)
	if err != nil {
		return "", nil, err
	}
	codes := make([]string, 0, len(table.USD))
	for code := range table.USD {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return table.Date, codes, nil
}

// CachedDates - даты таблиц в памяти, по возрастанию
func (s *ConversionService) CachedDates() []string {
	return s.store.dates()
}

func (s *ConversionService) resolveTable(ctx context.Context, date string) (*model.RateTable, error) {
	if date == "" || date == dateLatest {
		if table, ok := s.store.latestTable(); ok {
			return table, nil
		}
		return s.load(ctx, "")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, errors.New("Wrong date format. Date must be in YYYY-MM-DD format.")
	}
	if table, ok := s.store.get(date); ok {
		return table, nil
	}
	return s.load(ctx, date)
}

// load достает таблицу из Redis или из API; одновременные запросы одной даты схлопываются
func (s *ConversionService) load(ctx context.Context, date string) (*model.RateTable, error) {
	v, err, _ := s.group.Do(date, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		if date != "" && s.cache != nil {
			table, err := s.cache.GetRateTable(ctx, date)
			if err == nil {
				s.logger.Debug("Cache hit", zap.String("date", date))
				s.store.put(table)
				return table, nil
			}
			s.logger.Debug("Cache miss", zap.String("date", date), zap.Error(err))
		}

		table, err := s.fetcher.FetchTable(ctx, date)
		if err != nil {
			return nil, err
		}
		if date == "" {
			s.store.putLatest(table)
		} else {
			s.store.put(table)
		}
		s.cacheAsync(table)
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.RateTable), nil
}

func (s *ConversionService) cacheAsync(table *model.RateTable) {
	if s.cache == nil {
		return
	}
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.SetRateTable(cacheCtx, table); err != nil {
			s.logger.Warn("Failed to cache rate table (non-critical)",
				zap.String("date", table.Date),
				zap.Error(err),
			)
		}
	}()
}

var _ ConversionServiceInterface = (*ConversionService)(nil)
