package main

import (
	"log"

	"currency-bridge/internal/app"
	"currency-bridge/internal/config"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.Load()

	application := app.New(cfg)

	log.Println("Starting Currency Bridge...")
	log.Println("🌐 API доступен: http://localhost:" + cfg.Server.Port + "/api/v1")
	log.Println("🔌 Сокет доступен: ws://localhost:" + cfg.Server.Port + "/socket")

	if err := application.Run(); err != nil {
		log.Fatalf("Failed: %v", err)
	}

	log.Println("Stopped")
}
