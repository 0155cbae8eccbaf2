package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/out/jwtident"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
)

// 對 HTTP surface 打並發轉帳，結束後驗證轉出帳戶的餘額變化
// 與成功筆數一致 (conservation / no lost update)
func main() {
	var (
		addr        = flag.String("addr", "http://localhost:8080", "ledger service base URL")
		signingKey  = flag.String("signing-key", "dev-only-signing-key", "credential signing key (same as the service)")
		senderID    = flag.String("sender-id", "", "sender account UUID (from service seed log)")
		recipient   = flag.String("recipient", "bob", "recipient username")
		rawAmount   = flag.String("amount", "0.01", "amount per transfer")
		total       = flag.Int("total", 10000, "total number of transfers")
		concurrency = flag.Int("concurrency", 100, "max in-flight requests")
	)
	flag.Parse()

	sender, err := uuid.Parse(*senderID)
	if err != nil {
		log.Fatalf("invalid -sender-id: %v", err)
	}
	amount, err := domain.ParseAmount(*rawAmount)
	if err != nil {
		log.Fatalf("invalid -amount: %v", err)
	}

	// 這裡扮演外部的 Identity Provider：用同一把金鑰幫轉出帳戶簽憑證
	identity := jwtident.NewProvider([]byte(*signingKey), time.Hour)
	token, err := identity.Issue(sender)
	if err != nil {
		log.Fatalf("failed to issue credential: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	before, err := fetchBalance(ctx, client, *addr, token)
	if err != nil {
		log.Fatalf("failed to read initial balance: %v", err)
	}
	log.Printf("initial balance: %s", before)

	var succeeded atomic.Int64
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for i := 0; i < *total; i++ {
		idx := i
		g.Go(func() error {
			ok, err := postTransfer(gctx, client, *addr, token, *recipient, *rawAmount)
			if err != nil {
				if idx%1000 == 0 {
					log.Printf("transfer %d failed: %v", idx, err)
				}
				return nil // 單筆失敗不中斷整場測試
			}
			if ok {
				succeeded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("load test aborted: %v", err)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v\n", *total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())

	after, err := fetchBalance(ctx, client, *addr, token)
	if err != nil {
		log.Fatalf("failed to read final balance: %v", err)
	}
	expected := before - domain.Amount(succeeded.Load())*amount
	fmt.Printf("Succeeded: %d, balance %s -> %s (expected %s)\n", succeeded.Load(), before, after, expected)
	if after != expected {
		log.Fatalf("CONSERVATION VIOLATED: expected %s, got %s", expected, after)
	}
	fmt.Println("Conservation holds")
}

func postTransfer(ctx context.Context, client *http.Client, addr, token, recipient, amount string) (bool, error) {
	body, err := json.Marshal(map[string]string{
		"recipientUsername": recipient,
		"amount":            amount,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/transfer", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	// 400 是業務規則拒絕 (如餘額見底)，不算基礎設施錯誤
	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	if resp.StatusCode == http.StatusBadRequest {
		return false, nil
	}
	return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
}

func fetchBalance(ctx context.Context, client *http.Client, addr, token string) (domain.Amount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/user/me", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var profile struct {
		Username string        `json:"username"`
		Balance  domain.Amount `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return 0, err
	}
	return profile.Balance, nil
}
