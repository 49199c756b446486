package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cipherstake/staking-ledger/pkg"
)

// Smoke check against a locally running ledger: deposit, read back both
// views, withdraw, and print every response. The account must already hold
// registry balance and an active delegation to the ledger, e.g.:
//
//	./staking-ledger mint 0x71C7...976F 1000000 --delegate-for 1h --config config.yml
//	LEDGER_SMOKE_ACCOUNT=0x71C7...976F go run test_scripts/smoke_ledger.go

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	baseURL := pkg.Getenv("LEDGER_API_URL", "http://127.0.0.1:8080")
	account := pkg.Getenv("LEDGER_SMOKE_ACCOUNT", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F")

	get(baseURL + "/healthcheck")

	post(baseURL+"/v1/deposit", map[string]any{"account": account, "amount": 250_000})
	get(baseURL + "/v1/stake/" + account)
	get(baseURL + "/v1/stake/" + account + "/cipher")
	get(baseURL + "/v1/total-staked")

	post(baseURL+"/v1/withdraw", map[string]any{"account": account, "amount": 100_000})
	get(baseURL + "/v1/stake/" + account)
	get(baseURL + "/v1/total-staked")
	get(baseURL + "/v1/operator/" + account)

	log.Println("smoke check passed")
}

func post(url string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Failed to marshal payload for %s: %v", url, err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("POST %s failed: %v", url, err)
	}
	report("POST", url, resp)
}

func get(url string) {
	resp, err := client.Get(url)
	if err != nil {
		log.Fatalf("GET %s failed: %v", url, err)
	}
	report("GET", url, resp)
}

func report(method, url string, resp *http.Response) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response from %s: %v", url, err)
	}

	log.Printf("%s %s -> %d %s", method, url, resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("unexpected status %d", resp.StatusCode)
	}
}
