package rest_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	rest_adapter "github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/in/rest"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/out/jwtident"
	memory_adapter "github.com/JoeShih716/go-ledger-service/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
)

type testEnv struct {
	server   *httptest.Server
	identity *jwtident.Provider
	alice    *domain.Account
	bob      *domain.Account
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	alice := domain.NewAccount(uuid.New(), "alice", 100000)
	bob := domain.NewAccount(uuid.New(), "bob", 100000)
	store, err := memory_adapter.NewMutexStore(map[uuid.UUID]*domain.Account{
		alice.ID: alice,
		bob.ID:   bob,
	}, nil)
	if err != nil {
		t.Fatalf("NewMutexStore: %v", err)
	}

	identity := jwtident.NewProvider([]byte("test-signing-key"), time.Hour)
	server := rest_adapter.NewServer(usecase.NewCoreUseCase(store), identity)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, identity: identity, alice: alice, bob: bob}
}

func (e *testEnv) tokenFor(t *testing.T, accountID uuid.UUID) string {
	t.Helper()
	token, err := e.identity.Issue(accountID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func (e *testEnv) post(t *testing.T, path, token, body string) (int, string) {
	t.Helper()
	return e.do(t, http.MethodPost, path, token, body)
}

func (e *testEnv) get(t *testing.T, path, token string) (int, string) {
	t.Helper()
	return e.do(t, http.MethodGet, path, token, "")
}

func TestTransferEndpoint(t *testing.T) {
	t.Run("moves funds and reports new balance", func(t *testing.T) {
		env := newTestEnv(t)
		status, body := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{"recipientUsername":"bob","amount":300.00}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", status, body)
		}
		if !strings.Contains(body, `"newBalance":700.00`) {
			t.Errorf("expected newBalance 700.00 in %s", body)
		}

		status, body = env.get(t, "/user/me", env.tokenFor(t, env.bob.ID))
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if !strings.Contains(body, `"balance":1300.00`) {
			t.Errorf("expected balance 1300.00 in %s", body)
		}
	})

	t.Run("accepts amount as string", func(t *testing.T) {
		env := newTestEnv(t)
		status, body := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{"recipientUsername":"bob","amount":"250.50"}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", status, body)
		}
		if !strings.Contains(body, `"newBalance":749.50`) {
			t.Errorf("expected newBalance 749.50 in %s", body)
		}
	})

	t.Run("insufficient balance is a business-rule 400", func(t *testing.T) {
		env := newTestEnv(t)
		status, body := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{"recipientUsername":"bob","amount":1500.00}`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if !strings.Contains(body, "insufficient balance") {
			t.Errorf("unexpected message: %s", body)
		}

		// 失敗後兩側餘額都不得變動
		_, me := env.get(t, "/user/me", env.tokenFor(t, env.alice.ID))
		if !strings.Contains(me, `"balance":1000.00`) {
			t.Errorf("sender balance changed: %s", me)
		}
	})

	t.Run("invalid amounts", func(t *testing.T) {
		env := newTestEnv(t)
		for _, amount := range []string{`-5`, `0`, `"abc"`, `"1.234"`} {
			status, body := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{"recipientUsername":"bob","amount":`+amount+`}`)
			if status != http.StatusBadRequest {
				t.Errorf("amount %s: expected 400, got %d", amount, status)
			}
			if !strings.Contains(body, "invalid transfer amount") {
				t.Errorf("amount %s: unexpected message %s", amount, body)
			}
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		env := newTestEnv(t)
		status, body := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{"recipientUsername":"nobody","amount":10.00}`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if !strings.Contains(body, "recipient account not found") {
			t.Errorf("unexpected message: %s", body)
		}
	})

	t.Run("self transfer", func(t *testing.T) {
		env := newTestEnv(t)
		status, body := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{"recipientUsername":"alice","amount":10.00}`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
		if !strings.Contains(body, "cannot transfer to yourself") {
			t.Errorf("unexpected message: %s", body)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		status, _ := env.post(t, "/transfer", env.tokenFor(t, env.alice.ID), `{notjson`)
		if status != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
	})

	t.Run("requires credential", func(t *testing.T) {
		env := newTestEnv(t)
		status, _ := env.post(t, "/transfer", "", `{"recipientUsername":"bob","amount":10.00}`)
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
		status, _ = env.post(t, "/transfer", "garbage-token", `{"recipientUsername":"bob","amount":10.00}`)
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
	})
}

func TestMeEndpoint(t *testing.T) {
	t.Run("returns username and balance", func(t *testing.T) {
		env := newTestEnv(t)
		status, body := env.get(t, "/user/me", env.tokenFor(t, env.alice.ID))
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if !strings.Contains(body, `"username":"alice"`) || !strings.Contains(body, `"balance":1000.00`) {
			t.Errorf("unexpected body: %s", body)
		}
	})

	t.Run("404 when the account vanished after authentication", func(t *testing.T) {
		env := newTestEnv(t)
		status, _ := env.get(t, "/user/me", env.tokenFor(t, uuid.New()))
		if status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})

	t.Run("401 without credential", func(t *testing.T) {
		env := newTestEnv(t)
		status, _ := env.get(t, "/user/me", "")
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
	})
}
