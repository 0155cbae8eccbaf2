package domain

import "errors"

var (
	// ErrInvalidAmount 金額格式錯誤或非正數
	ErrInvalidAmount = errors.New("invalid transfer amount")

	// ErrSenderNotFound 找不到轉出帳戶 (已通過驗證的呼叫者，理論上不該發生)
	ErrSenderNotFound = errors.New("sender account not found")

	// ErrRecipientNotFound 找不到轉入帳戶
	ErrRecipientNotFound = errors.New("recipient account not found")

	// ErrSelfTransfer 不允許轉帳給自己
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrStoreUnavailable 底層儲存故障
	ErrStoreUnavailable = errors.New("account store unavailable")

	// ErrUpdateConflict 原子更新發生衝突 (可重試)
	ErrUpdateConflict = errors.New("atomic update conflict")

	// ErrInvalidCredential 憑證無效或過期
	ErrInvalidCredential = errors.New("invalid or expired credential")

	// ErrJournalWriteFailed 寫入 journal 失敗
	ErrJournalWriteFailed = errors.New("journal write failed")
)
