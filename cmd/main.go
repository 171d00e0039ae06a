package main

import (
	_ "gw-wallet-ledger/docs"
	"gw-wallet-ledger/internal/app"
	"log"
)

// @title           Wallet Ledger API
// @version         1.0
// @description     Мультивалютный кошелек с пересчетом балансов в базовую валюту по курсам NBP

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app, err := app.NewApp()
	if err != nil {
		log.Fatalf("Ошибка создания приложения: %v", err)
	}

	app.BuildAuthLayer()
	if err := app.BuildWalletLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя wallet: %v", err)
	}
	app.BuildExchangeLayer()

	if err := app.Run(); err != nil {
		log.Fatalf("Ошибка при работе приложения: %v", err)
	}
}
