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

// command 更新請求包裝 channel，讓呼叫端可以等待結果
type command struct {
	// create 不為 nil 時代表建立帳戶，否則為原子更新
	create   *domain.Account
	changeID uuid.UUID
	ids      []uuid.UUID
	fn       func(accounts map[uuid.UUID]*domain.Account) error
	result   chan error
}

// SerialStore 是單一寫入者 (LMAX 風格) 的帳戶儲存
//
// 所有異動都經過輸送帶 (channel) 進入唯一的處理迴圈，
// 完全不需要鎖順序；讀取走 RWMutex，只在提交瞬間與寫入者互斥。
type SerialStore struct {
	accounts  map[uuid.UUID]*domain.Account
	usernames map[string]uuid.UUID
	// mu 只保護讀取端與提交瞬間；寫入者只有 run loop 一個
	mu sync.RWMutex

	appliedChanges map[uuid.UUID]time.Time
	journal        *wal.WAL

	// 輸送帶 負責接收異動
	commandChan chan *command
	// Pool 減少 GC 壓力
	commandPool sync.Pool
	// run loop 退出時關閉；之後的提交一律失敗，不會有人處理
	done chan struct{}
}

// NewSerialStore 建立一個新的 SerialStore 實例，呼叫端需再呼叫 Start 啟動處理迴圈
func NewSerialStore(accounts map[uuid.UUID]*domain.Account, journal *wal.WAL) (*SerialStore, error) {
	store := &SerialStore{
		accounts:       make(map[uuid.UUID]*domain.Account, len(accounts)),
		usernames:      make(map[string]uuid.UUID, len(accounts)),
		appliedChanges: make(map[uuid.UUID]time.Time),
		journal:        journal,
		commandChan:    make(chan *command, 1000), // Buffer 1000
		done:           make(chan struct{}),
		commandPool: sync.Pool{
			New: func() interface{} {
				return &command{
					result: make(chan error, 1),
				}
			},
		},
	}
	for id, acc := range accounts {
		store.accounts[id] = acc.Clone()
		store.usernames[acc.Username] = id
	}

	// 在啟動前先恢復資料 (單執行緒，無需 Lock)
	err := replayJournal(journal, func(entry *journalEntry) {
		for _, state := range entry.Accounts {
			store.accounts[state.ID] = domain.NewAccount(state.ID, state.Username, state.Balance)
			store.usernames[state.Username] = state.ID
		}
		store.appliedChanges[entry.ChangeID] = time.UnixMilli(entry.CommittedAt)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Start 啟動處理迴圈 (非同步)；ctx 取消時把輸送帶上剩餘的異動處理完才退出
func (s *SerialStore) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *SerialStore) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case cmd := <-s.commandChan:
			s.process(cmd)
		}
	}
}

func (s *SerialStore) drain() {
	for {
		select {
		case cmd := <-s.commandChan:
			s.process(cmd)
		default:
			return
		}
	}
}

// process 處理單筆異動並回傳結果
// run loop 是唯一的寫入者，讀自己的 map 不需要鎖，只在提交瞬間加寫鎖
func (s *SerialStore) process(cmd *command) {
	if cmd.create != nil {
		cmd.result <- s.processCreate(cmd.create)
		return
	}

	// 0. Idempotency Check (Thread Safe in Loop)
	if _, ok := s.appliedChanges[cmd.changeID]; ok {
		cmd.result <- nil
		return
	}

	copies := make(map[uuid.UUID]*domain.Account, len(cmd.ids))
	for _, id := range cmd.ids {
		if acc, ok := s.accounts[id]; ok {
			copies[id] = acc.Clone()
		}
	}

	if err := cmd.fn(copies); err != nil {
		cmd.result <- err
		return
	}

	// 寫入 journal (Critical Path)
	if s.journal != nil {
		if err := s.journal.Write(newJournalEntry(cmd.changeID, copies)); err != nil {
			cmd.result <- domain.ErrJournalWriteFailed
			return
		}
	}

	s.mu.Lock()
	for id, acc := range copies {
		s.accounts[id] = acc
		s.usernames[acc.Username] = id
	}
	s.mu.Unlock()
	s.appliedChanges[cmd.changeID] = time.Now()

	cmd.result <- nil
}

func (s *SerialStore) processCreate(account *domain.Account) error {
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

	s.mu.Lock()
	s.accounts[cp.ID] = cp
	s.usernames[cp.Username] = cp.ID
	s.mu.Unlock()
	return nil
}

// submit 把 command 放上輸送帶並等待結果
//
// run loop 退出後輸送帶不再有人消化，done 讓卡在 buffer 裡的提交
// 以 ErrStoreUnavailable 收場，而不是永遠等不到結果
func (s *SerialStore) submit(ctx context.Context, cmd *command) error {
	select {
	case s.commandChan <- cmd:
	case <-s.done:
		return domain.ErrStoreUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
	// 已上帶就必須等到結果，提交與否由迴圈決定
	select {
	case err := <-cmd.result:
		return err
	case <-s.done:
		// drain 可能趕在退出前處理完這筆，再確認一次
		select {
		case err := <-cmd.result:
			return err
		default:
			return domain.ErrStoreUnavailable
		}
	}
}

func (s *SerialStore) getCommand() *command {
	cmd := s.commandPool.Get().(*command)
	cmd.create = nil
	cmd.fn = nil
	cmd.ids = nil
	// 清空 result channel (理論上應該是空的，保險起見)
	select {
	case <-cmd.result:
	default:
	}
	return cmd
}

// FindByID 以帳戶 ID 查詢
func (s *SerialStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
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
func (s *SerialStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.accounts[id].Clone(), nil
}

// CreateAccount 建立帳戶 (經過輸送帶，維持單一寫入者)
func (s *SerialStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	cmd := s.getCommand()
	cmd.create = account
	err := s.submit(ctx, cmd)
	s.commandPool.Put(cmd)
	return err
}

// LoadAllAccounts 載入所有帳戶快照
func (s *SerialStore) LoadAllAccounts(ctx context.Context) (map[uuid.UUID]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[uuid.UUID]*domain.Account, len(s.accounts))
	for id, acc := range s.accounts {
		snapshot[id] = acc.Clone()
	}
	return snapshot, nil
}

// AtomicUpdate 處理原子更新 (Level 2: 單一寫入者迴圈)
//
// AtomicUpdate(等待) -> Channel -> Run Loop (核心) -> journal -> Map 提交 -> Result Channel -> AtomicUpdate(收到結果)
func (s *SerialStore) AtomicUpdate(ctx context.Context, changeID uuid.UUID, ids []uuid.UUID, fn func(accounts map[uuid.UUID]*domain.Account) error) error {
	cmd := s.getCommand()
	cmd.changeID = changeID
	cmd.ids = ids
	cmd.fn = fn
	err := s.submit(ctx, cmd)
	s.commandPool.Put(cmd)
	return err
}

var _ usecase.AccountStore = (*SerialStore)(nil)
