// Command statsctl normalizes video statistics payloads and fetches canonical
// records from the booking backend.
//
// Usage:
//
//	statsctl normalize payload.json
//	cat payload.json | statsctl normalize
//	statsctl fetch vid-1 vid-2 --token $TOKEN --concurrency 4
//	statsctl library --page 2 --limit 50
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
