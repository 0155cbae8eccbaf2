package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
)

// fakeStore 單執行緒的 AccountStore 假實作，記錄呼叫次數供驗證
type fakeStore struct {
	accounts  map[uuid.UUID]*domain.Account
	usernames map[string]uuid.UUID

	lookupCalls int
	updateCalls int
	// updateErrs 依序在每次 AtomicUpdate 先回傳 (模擬衝突/故障)，耗盡後正常執行
	updateErrs []error
}

func newFakeStore(accounts ...*domain.Account) *fakeStore {
	s := &fakeStore{
		accounts:  make(map[uuid.UUID]*domain.Account),
		usernames: make(map[string]uuid.UUID),
	}
	for _, acc := range accounts {
		s.accounts[acc.ID] = acc.Clone()
		s.usernames[acc.Username] = acc.ID
	}
	return s
}

func (s *fakeStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.lookupCalls++
	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (s *fakeStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.lookupCalls++
	id, ok := s.usernames[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

func (s *fakeStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	if _, ok := s.usernames[account.Username]; ok {
		return domain.ErrAccountAlreadyExists
	}
	s.accounts[account.ID] = account.Clone()
	s.usernames[account.Username] = account.ID
	return nil
}

func (s *fakeStore) LoadAllAccounts(ctx context.Context) (map[uuid.UUID]*domain.Account, error) {
	return s.accounts, nil
}

func (s *fakeStore) AtomicUpdate(ctx context.Context, changeID uuid.UUID, ids []uuid.UUID, fn func(accounts map[uuid.UUID]*domain.Account) error) error {
	s.updateCalls++
	if len(s.updateErrs) > 0 {
		err := s.updateErrs[0]
		s.updateErrs = s.updateErrs[1:]
		if err != nil {
			return err
		}
	}

	copies := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			copies[id] = acc.Clone()
		}
	}
	if err := fn(copies); err != nil {
		return err
	}
	for id, acc := range copies {
		s.accounts[id] = acc
	}
	return nil
}

func (s *fakeStore) balanceOf(t *testing.T, id uuid.UUID) domain.Amount {
	t.Helper()
	acc, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %s vanished", id)
	}
	return acc.Balance
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves amount and returns sender balance", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 100000)
		bob := domain.NewAccount(uuid.New(), "bob", 100000)
		store := newFakeStore(alice, bob)
		core := usecase.NewCoreUseCase(store)

		newBalance, err := core.Transfer(ctx, alice.ID, "bob", "300.00")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if newBalance != 70000 {
			t.Errorf("expected new balance 70000, got %d", newBalance)
		}
		if got := store.balanceOf(t, alice.ID); got != 70000 {
			t.Errorf("expected sender 70000, got %d", got)
		}
		if got := store.balanceOf(t, bob.ID); got != 130000 {
			t.Errorf("expected recipient 130000, got %d", got)
		}
	})

	t.Run("insufficient balance leaves both accounts untouched", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 10000)
		bob := domain.NewAccount(uuid.New(), "bob", 100000)
		store := newFakeStore(alice, bob)
		core := usecase.NewCoreUseCase(store)

		_, err := core.Transfer(ctx, alice.ID, "bob", "150.00")
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		if got := store.balanceOf(t, alice.ID); got != 10000 {
			t.Errorf("sender changed: %d", got)
		}
		if got := store.balanceOf(t, bob.ID); got != 100000 {
			t.Errorf("recipient changed: %d", got)
		}
	})

	t.Run("invalid amount fails before any lookup", func(t *testing.T) {
		for _, raw := range []string{"-5", "0", "abc", "1.234", ""} {
			alice := domain.NewAccount(uuid.New(), "alice", 100000)
			store := newFakeStore(alice)
			core := usecase.NewCoreUseCase(store)

			_, err := core.Transfer(ctx, alice.ID, "bob", raw)
			if !errors.Is(err, domain.ErrInvalidAmount) {
				t.Errorf("amount %q: expected ErrInvalidAmount, got %v", raw, err)
			}
			if store.lookupCalls != 0 {
				t.Errorf("amount %q: expected no lookups, got %d", raw, store.lookupCalls)
			}
			if store.updateCalls != 0 {
				t.Errorf("amount %q: expected no updates, got %d", raw, store.updateCalls)
			}
		}
	})

	t.Run("unknown sender", func(t *testing.T) {
		bob := domain.NewAccount(uuid.New(), "bob", 100000)
		store := newFakeStore(bob)
		core := usecase.NewCoreUseCase(store)

		_, err := core.Transfer(ctx, uuid.New(), "bob", "10.00")
		if !errors.Is(err, domain.ErrSenderNotFound) {
			t.Errorf("expected ErrSenderNotFound, got %v", err)
		}
	})

	t.Run("unknown recipient leaves balances unchanged", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 100000)
		store := newFakeStore(alice)
		core := usecase.NewCoreUseCase(store)

		_, err := core.Transfer(ctx, alice.ID, "nobody", "10.00")
		if !errors.Is(err, domain.ErrRecipientNotFound) {
			t.Fatalf("expected ErrRecipientNotFound, got %v", err)
		}
		if got := store.balanceOf(t, alice.ID); got != 100000 {
			t.Errorf("sender changed: %d", got)
		}
		if store.updateCalls != 0 {
			t.Errorf("expected no updates, got %d", store.updateCalls)
		}
	})

	t.Run("self transfer is forbidden", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 100000)
		store := newFakeStore(alice)
		core := usecase.NewCoreUseCase(store)

		_, err := core.Transfer(ctx, alice.ID, "alice", "10.00")
		if !errors.Is(err, domain.ErrSelfTransfer) {
			t.Errorf("expected ErrSelfTransfer, got %v", err)
		}
		if got := store.balanceOf(t, alice.ID); got != 100000 {
			t.Errorf("balance changed: %d", got)
		}
	})

	t.Run("retries on update conflict", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 100000)
		bob := domain.NewAccount(uuid.New(), "bob", 100000)
		store := newFakeStore(alice, bob)
		store.updateErrs = []error{domain.ErrUpdateConflict, domain.ErrUpdateConflict}
		core := usecase.NewCoreUseCase(store)

		newBalance, err := core.Transfer(ctx, alice.ID, "bob", "300.00")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if newBalance != 70000 {
			t.Errorf("expected 70000, got %d", newBalance)
		}
		if store.updateCalls != 3 {
			t.Errorf("expected 3 attempts, got %d", store.updateCalls)
		}
	})

	t.Run("gives up after bounded conflict retries", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 100000)
		bob := domain.NewAccount(uuid.New(), "bob", 100000)
		store := newFakeStore(alice, bob)
		store.updateErrs = []error{domain.ErrUpdateConflict, domain.ErrUpdateConflict, domain.ErrUpdateConflict}
		core := usecase.NewCoreUseCase(store)

		_, err := core.Transfer(ctx, alice.ID, "bob", "300.00")
		if !errors.Is(err, domain.ErrUpdateConflict) {
			t.Fatalf("expected ErrUpdateConflict, got %v", err)
		}
		if store.updateCalls != 3 {
			t.Errorf("expected 3 attempts, got %d", store.updateCalls)
		}
		if got := store.balanceOf(t, alice.ID); got != 100000 {
			t.Errorf("sender changed: %d", got)
		}
	})

	t.Run("store fault surfaces without partial write", func(t *testing.T) {
		alice := domain.NewAccount(uuid.New(), "alice", 100000)
		bob := domain.NewAccount(uuid.New(), "bob", 100000)
		store := newFakeStore(alice, bob)
		store.updateErrs = []error{domain.ErrStoreUnavailable}
		core := usecase.NewCoreUseCase(store)

		_, err := core.Transfer(ctx, alice.ID, "bob", "300.00")
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
		if store.updateCalls != 1 {
			t.Errorf("expected no retry on store fault, got %d attempts", store.updateCalls)
		}
		if got := store.balanceOf(t, alice.ID); got != 100000 {
			t.Errorf("sender changed: %d", got)
		}
	})
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	alice := domain.NewAccount(uuid.New(), "alice", 100000)
	store := newFakeStore(alice)
	core := usecase.NewCoreUseCase(store)

	t.Run("returns username and balance", func(t *testing.T) {
		acc, err := core.GetAccount(ctx, alice.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if acc.Username != "alice" || acc.Balance != 100000 {
			t.Errorf("unexpected account %+v", acc)
		}
	})

	t.Run("repeated queries are identical without intervening transfers", func(t *testing.T) {
		first, err := core.GetAccount(ctx, alice.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := core.GetAccount(ctx, alice.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.Balance != second.Balance {
			t.Errorf("balance drifted: %d vs %d", first.Balance, second.Balance)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := core.GetAccount(ctx, uuid.New())
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})
}
