package main

import (
	"log"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
