package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
	"github.com/JoeShih716/go-ledger-service/pkg/wal"
)

// MutexStore 是一個使用 Mutex 實現的帳戶儲存
//
// 結構:
//
//	accounts: 帳戶資料 Map (map 內的 *Account 視為不可變，提交時整個替換)
//	usernames: 名稱 -> ID 索引
//	mu: 保護上述兩個 Map
//	appliedChanges: 已提交過的 changeID
//	journal: Write-Ahead Log，可為 nil (純記憶體模式)
type MutexStore struct {
	accounts  map[uuid.UUID]*domain.Account
	usernames map[string]uuid.UUID
	mu        sync.RWMutex

	appliedChanges map[uuid.UUID]time.Time
	journal        *wal.WAL
}

// NewMutexStore 建立一個新的 MutexStore 實例
//
// 參數:
//
//	accounts: 初始帳戶資料 Map
//	journal: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*MutexStore: MutexStore 實例
//	error: 初始化錯誤 (如 journal 重放失敗)
func NewMutexStore(accounts map[uuid.UUID]*domain.Account, journal *wal.WAL) (*MutexStore, error) {
	store := &MutexStore{
		accounts:       make(map[uuid.UUID]*domain.Account, len(accounts)),
		usernames:      make(map[string]uuid.UUID, len(accounts)),
		appliedChanges: make(map[uuid.UUID]time.Time),
		journal:        journal,
	}
	for id, acc := range accounts {
		store.accounts[id] = acc.Clone()
		store.usernames[acc.Username] = id
	}

	// 重放只在建構時跑 (單執行緒)，無需 Lock
	err := replayJournal(journal, func(entry *journalEntry) {
		store.applyEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// applyEntry 把一筆已提交紀錄覆寫回帳戶表
func (s *MutexStore) applyEntry(entry *journalEntry) {
	for _, state := range entry.Accounts {
		s.accounts[state.ID] = domain.NewAccount(state.ID, state.Username, state.Balance)
		s.usernames[state.Username] = state.ID
	}
	s.appliedChanges[entry.ChangeID] = time.UnixMilli(entry.CommittedAt)
}

// FindByID 以帳戶 ID 查詢
func (s *MutexStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	// 回傳副本，呼叫端改了也污染不到帳戶表
	return account.Clone(), nil
}

// FindByUsername 以帳戶名稱查詢 (區分大小寫)
func (s *MutexStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

// CreateAccount 建立帳戶並寫入 journal
func (s *MutexStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return domain.ErrAccountAlreadyExists
	}
	if _, ok := s.usernames[account.Username]; ok {
		return domain.ErrAccountAlreadyExists
	}

	cp := account.Clone()
	if s.journal != nil {
		entry := newJournalEntry(uuid.New(), map[uuid.UUID]*domain.Account{cp.ID: cp})
		if err := s.journal.Write(entry); err != nil {
			return domain.ErrJournalWriteFailed
		}
	}

	s.accounts[cp.ID] = cp
	s.usernames[cp.Username] = cp.ID
	return nil
}

// LoadAllAccounts 載入所有帳戶快照
func (s *MutexStore) LoadAllAccounts(ctx context.Context) (map[uuid.UUID]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[uuid.UUID]*domain.Account, len(s.accounts))
	for id, acc := range s.accounts {
		snapshot[id] = acc.Clone()
	}
	return snapshot, nil
}

// AtomicUpdate 處理原子更新 (Level 1: 單一 Mutex)
//
// 全域一把鎖讓所有更新天然序列化，不需要逐帳戶鎖也就沒有鎖順序問題；
// fn 操作的是副本，journal 落地後才把副本換進帳戶表，
// 任何一步失敗時帳戶表原封不動。
func (s *MutexStore) AtomicUpdate(ctx context.Context, changeID uuid.UUID, ids []uuid.UUID, fn func(accounts map[uuid.UUID]*domain.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appliedChanges[changeID]; ok {
		return nil
	}

	// 1. 取出一致快照的副本
	copies := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			copies[id] = acc.Clone()
		}
	}

	// 2. 執行異動邏輯；錯誤即放棄，帳戶表未被碰過
	if err := fn(copies); err != nil {
		return err
	}

	// 3. 寫入 journal (Critical Path)
	if s.journal != nil {
		if err := s.journal.Write(newJournalEntry(changeID, copies)); err != nil {
			return domain.ErrJournalWriteFailed
		}
	}

	// 4. 提交：整個替換，讀取端拿到的舊指標仍是一致快照
	for id, acc := range copies {
		s.accounts[id] = acc
		s.usernames[acc.Username] = id
	}
	s.appliedChanges[changeID] = time.Now()
	return nil
}

var _ usecase.AccountStore = (*MutexStore)(nil)
