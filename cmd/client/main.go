package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"currency-bridge/internal/bridge"
	"currency-bridge/internal/socket"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run возвращает код выхода: 2 - ошибка конвертации, 3 - ответ не пришел
func run(args []string) int {
	flags := flag.NewFlagSet("client", flag.ContinueOnError)
	url := flags.String("url", "ws://localhost:8080/socket", "socket endpoint")
	date := flags.String("date", "latest", "date YYYY-MM-DD or latest")
	base := flags.String("base", "usd", "base currency")
	amount := flags.String("amount", "1", "base amount")
	counter := flags.String("counter", "eur", "counter currency")
	correlate := flags.Bool("correlate", false, "ignore responses to other requests")
	wait := flags.Duration("wait", 10*time.Second, "how long to wait for a response")
	verbose := flags.Bool("v", false, "debug logging")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	client, err := socket.Dial(ctx, *url, 0, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Close()

	shown := make(chan bridge.Display, 1)
	opts := []bridge.Option{bridge.WithRenderer(bridge.RendererFunc(func(d bridge.Display, l bridge.EchoLabels) {
		fmt.Printf("[%s] %s %s -> %s | visible=%t status=%s\n",
			l.Date, l.BaseAmount, l.BaseCurrency, l.CounterCurrency, d.Visible, statusName(d.Status))
		if d.Visible {
			select {
			case shown <- d:
			default:
			}
		}
	}))}
	if *correlate {
		opts = append(opts, bridge.WithCorrelation())
	}
	b := bridge.New(client, opts...)

	go func() {
		if err := client.Run(ctx); err != nil {
			logger.Debug("socket closed", zap.Error(err))
		}
	}()

	b.SetField(bridge.FieldDate, *date)
	b.SetField(bridge.FieldBaseCurrency, *base)
	b.SetField(bridge.FieldBaseAmount, *amount)
	b.SetField(bridge.FieldCounterCurrency, *counter)
	if err := b.Submit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	select {
	case d := <-shown:
		fmt.Println(d.Message)
		if d.Status == bridge.StatusError {
			return 2
		}
		fmt.Println(d.TargetAmount)
		return 0
	case <-ctx.Done():
		// результат так и не пришел
		fmt.Fprintln(os.Stderr, "no response within", *wait)
		return 3
	}
}

func statusName(s bridge.Status) string {
	switch s {
	case bridge.StatusSuccess:
		return "ok"
	case bridge.StatusError:
		return "error"
	}
	return "-"
}
