package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
)

// AccountStore 是帳戶儲存的介面
// 餘額唯一的異動路徑是 AtomicUpdate，其他元件一律不得寫入餘額
type AccountStore interface {
	// FindByID 以帳戶 ID 查詢，不存在回傳 domain.ErrAccountNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// FindByUsername 以帳戶名稱查詢 (區分大小寫)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	// CreateAccount 建立帳戶，ID 或名稱重複回傳 domain.ErrAccountAlreadyExists
	CreateAccount(ctx context.Context, account *domain.Account) error
	// LoadAllAccounts 載入所有帳戶快照
	LoadAllAccounts(ctx context.Context) (map[uuid.UUID]*domain.Account, error)

	// AtomicUpdate 對指定帳戶集合做 read-modify-write:
	// fn 拿到的是一致快照的「副本」，回傳 nil 則所有異動一起提交，
	// 回傳 error 則整筆放棄、一個位元組都不落地。
	//
	// 參數:
	//
	//	changeID: 本次異動的追蹤號，重複提交視為已完成 (冪等)
	//	ids: 需要鎖定的帳戶 ID，呼叫端需先排序 (見 domain.TransferIntent.LockIDs)
	//	fn: 異動邏輯，map 的 key 為帳戶 ID；不存在的帳戶不會出現在 map 中
	//
	// 回傳:
	//
	//	error: fn 回傳的業務錯誤原樣帶回；底層衝突回傳 domain.ErrUpdateConflict，
	//	       其他基礎設施故障回傳 domain.ErrStoreUnavailable
	AtomicUpdate(ctx context.Context, changeID uuid.UUID, ids []uuid.UUID, fn func(accounts map[uuid.UUID]*domain.Account) error) error
}
