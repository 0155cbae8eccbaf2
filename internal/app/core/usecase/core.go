package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
)

// maxConflictRetries 原子更新衝突時的重試上限
const maxConflictRetries = 3

// CoreUseCase 是核心業務邏輯層：轉帳引擎與餘額查詢
type CoreUseCase struct {
	store AccountStore
}

func NewCoreUseCase(store AccountStore) *CoreUseCase {
	return &CoreUseCase{
		store: store,
	}
}

// Transfer 將 amount 從呼叫者帳戶原子地搬到 recipientUsername 帳戶
//
// 參數:
//
//	ctx: 上下文
//	callerID: 已驗證的呼叫者帳戶 ID
//	recipientUsername: 轉入帳戶名稱
//	rawAmount: 金額字串 (十進位，最多兩位小數)
//
// 回傳:
//
//	domain.Amount: 轉出後呼叫者的餘額
//	error: 驗證失敗或底層故障；任何錯誤都保證兩側餘額不變
//
// 驗證順序固定: 金額 -> 轉出帳戶 -> 轉入帳戶 -> 自轉 -> 餘額
// 餘額會在原子更新內以最新快照再驗一次
func (c *CoreUseCase) Transfer(ctx context.Context, callerID uuid.UUID, recipientUsername string, rawAmount string) (domain.Amount, error) {
	// 1. 金額：在任何查詢之前擋掉無效輸入
	amount, err := domain.ParseAmount(rawAmount)
	if err != nil || amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	// 2. 轉出帳戶 (呼叫者已通過驗證，找不到屬於內部一致性問題，但仍需處理)
	sender, err := c.store.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return 0, domain.ErrSenderNotFound
		}
		return 0, err
	}

	// 3. 轉入帳戶
	recipient, err := c.store.FindByUsername(ctx, recipientUsername)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return 0, domain.ErrRecipientNotFound
		}
		return 0, err
	}

	// 4. 自轉：同一筆帳戶既扣又加會讓結果語意不明，直接禁止
	if sender.ID == recipient.ID {
		return 0, domain.ErrSelfTransfer
	}

	intent := domain.NewTransferIntent(sender.ID, recipient.ID, amount)

	// 5. 原子更新：扣款與入帳一起提交，或一起放棄
	var newBalance domain.Amount
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = c.store.AtomicUpdate(ctx, intent.ChangeID, intent.LockIDs(), func(accounts map[uuid.UUID]*domain.Account) error {
			from, ok := accounts[intent.SenderID]
			if !ok {
				return domain.ErrSenderNotFound
			}
			to, ok := accounts[intent.RecipientID]
			if !ok {
				return domain.ErrRecipientNotFound
			}

			if err := from.Withdraw(amount); err != nil {
				return err
			}
			if err := to.Deposit(amount); err != nil {
				return err
			}

			newBalance = from.Balance
			return nil
		})
		if !errors.Is(err, domain.ErrUpdateConflict) {
			break
		}
	}
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetAccount 取得呼叫者的帳戶 (名稱與餘額)
func (c *CoreUseCase) GetAccount(ctx context.Context, callerID uuid.UUID) (*domain.Account, error) {
	return c.store.FindByID(ctx, callerID)
}
