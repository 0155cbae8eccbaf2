package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	rest_adapter "github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/in/rest"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/out/jwtident"
	memory_adapter "github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/config"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
	"github.com/JoeShih716/go-ledger-service/pkg/mysql"
	"github.com/JoeShih716/go-ledger-service/pkg/wal"
)

// 帳戶建立時的預設初始餘額 (1000.00)
const defaultSeedBalance = 1000 * domain.AmountScale

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 初始化帳戶儲存
	var store usecase.AccountStore
	switch cfg.Ledger.Backend {
	case config.BackendMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer dbClient.Close()
		log.Println("Connected to MySQL successfully")

		mysqlStore := mysql_adapter.NewStore(dbClient)
		if err := mysqlStore.Migrate(); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		store = mysqlStore

	case config.BackendMemoryMutex, config.BackendMemorySerial:
		// 初始化 WAL；程式結束時關閉
		walFile, err := wal.NewWAL(cfg.Ledger.WALPath)
		if err != nil {
			log.Fatalf("Failed to init WAL: %v", err)
		}
		defer walFile.Close()

		accounts := make(map[uuid.UUID]*domain.Account)
		if cfg.Ledger.Backend == config.BackendMemoryMutex {
			mutexStore, err := memory_adapter.NewMutexStore(accounts, walFile)
			if err != nil {
				log.Fatalf("Failed to init MutexStore: %v", err)
			}
			store = mutexStore
		} else {
			serialStore, err := memory_adapter.NewSerialStore(accounts, walFile)
			if err != nil {
				log.Fatalf("Failed to init SerialStore: %v", err)
			}
			serialStore.Start(ctx)
			store = serialStore
		}

	default:
		log.Fatalf("Invalid ledger backend: %s", cfg.Ledger.Backend)
	}

	// 3. 補建種子帳戶
	if err := seedAccounts(ctx, store, cfg.Seed); err != nil {
		log.Fatalf("Failed to seed accounts: %v", err)
	}

	// 4. 初始化 UseCase 與 Identity Provider
	coreUseCase := usecase.NewCoreUseCase(store)
	identity := jwtident.NewProvider([]byte(cfg.Auth.SigningKey), cfg.Auth.TokenExpiry)

	// 5. 初始化 HTTP Adapter (Driving Adapter)
	server := rest_adapter.NewServer(coreUseCase, identity)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	// 6. 啟動 HTTP Server
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	// 取消 ctx，讓 serial backend 把輸送帶上剩餘的異動處理完
	cancel()
	log.Println("Server exited")
}

// seedAccounts 建立設定檔裡宣告、但還不存在的帳戶
// 帳戶只在這裡建立一次，之後的餘額異動全部走 Transfer Engine
func seedAccounts(ctx context.Context, store usecase.AccountStore, seeds []config.SeedAccount) error {
	for _, seed := range seeds {
		_, err := store.FindByUsername(ctx, seed.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}

		balance := domain.Amount(defaultSeedBalance)
		if seed.Balance != "" {
			balance, err = domain.ParseAmount(seed.Balance)
			if err != nil {
				return err
			}
		}

		account := domain.NewAccount(uuid.New(), seed.Username, balance)
		if err := store.CreateAccount(ctx, account); err != nil {
			return err
		}
		log.Printf("Seeded account %s (%s, balance %s)", account.Username, account.ID, account.Balance)
	}
	return nil
}
