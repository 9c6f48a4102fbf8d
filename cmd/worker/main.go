package main

import (
	"log"

	"github.com/joho/godotenv"

	"marketbay/internal/alerts"
)

func main() {
	_ = godotenv.Load()

	addr := alerts.RedisAddrFromEnv()
	log.Printf("event worker consuming from redis at %s", addr)
	if err := alerts.RunWorker(addr); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}
