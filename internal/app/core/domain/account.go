package domain

import "github.com/google/uuid"

// Account 帳戶：使用者身分加上當前餘額
//
// 結構:
//
//	ID: 建立後不可變的唯一識別碼
//	Username: 唯一、區分大小寫的顯示/查詢鍵
//	Balance: 當前餘額，任何時刻都必須 >= 0
type Account struct {
	ID       uuid.UUID
	Username string
	Balance  Amount
}

func NewAccount(id uuid.UUID, username string, balance Amount) *Account {
	return &Account{
		ID:       id,
		Username: username,
		Balance:  balance,
	}
}

// Clone 回傳帳戶副本，供 store 在原子更新時操作，避免交出內部指標
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}

// Deposit 存款 (入帳)
func (a *Account) Deposit(amount Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance + amount
	return nil
}

// Withdraw 提款 (扣帳)，餘額不足時不動帳戶
func (a *Account) Withdraw(amount Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if a.Balance < amount {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance - amount
	return nil
}
