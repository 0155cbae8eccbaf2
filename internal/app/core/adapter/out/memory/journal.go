package memory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/pkg/wal"
)

// journalAccountState 單一帳戶提交後的狀態
type journalAccountState struct {
	ID       uuid.UUID     `json:"id"`
	Username string        `json:"username"`
	Balance  domain.Amount `json:"balance"`
}

// journalEntry 一次已提交原子更新的紀錄
// 記的是「結果狀態」而非操作，重放時直接覆寫帳戶即可，天然冪等
type journalEntry struct {
	ChangeID    uuid.UUID             `json:"change_id"`
	CommittedAt int64                 `json:"committed_at"`
	Accounts    []journalAccountState `json:"accounts"`
}

func newJournalEntry(changeID uuid.UUID, accounts map[uuid.UUID]*domain.Account) *journalEntry {
	entry := &journalEntry{
		ChangeID:    changeID,
		CommittedAt: time.Now().UnixMilli(),
		Accounts:    make([]journalAccountState, 0, len(accounts)),
	}
	for _, acc := range accounts {
		entry.Accounts = append(entry.Accounts, journalAccountState{
			ID:       acc.ID,
			Username: acc.Username,
			Balance:  acc.Balance,
		})
	}
	return entry
}

// replayJournal 逐筆重放 journal，透過 apply 套用到呼叫端的帳戶表
func replayJournal(journal *wal.WAL, apply func(entry *journalEntry)) error {
	if journal == nil {
		return nil
	}
	return journal.ReadAll(func(jsonRaw []byte) error {
		var entry journalEntry
		if err := json.Unmarshal(jsonRaw, &entry); err != nil {
			return err
		}
		apply(&entry)
		return nil
	})
}
