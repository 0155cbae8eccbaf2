package domain

import (
	"bytes"

	"github.com/google/uuid"
)

// TransferIntent 一次轉帳的輸入，只存活於單次操作期間，不落地
type TransferIntent struct {
	// ChangeID: 外部追蹤號 (UUID)，journal 重放時用來去重
	ChangeID uuid.UUID
	// SenderID, RecipientID: 參與帳戶
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	// Amount: 金額，必為正數
	Amount Amount
}

func NewTransferIntent(senderID, recipientID uuid.UUID, amount Amount) *TransferIntent {
	return &TransferIntent{
		ChangeID:    uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
	}
}

// LockIDs 回傳需要鎖定的帳戶 ID，並確保順序以避免死鎖
// 兩筆方向相反的轉帳若各自先鎖自己那側，會互相等待；固定以 UUID 位元組序排序
func (t *TransferIntent) LockIDs() (ids []uuid.UUID) {
	ids = make([]uuid.UUID, 0, 2)
	if bytes.Compare(t.SenderID[:], t.RecipientID[:]) < 0 {
		ids = append(ids, t.SenderID, t.RecipientID)
	} else {
		ids = append(ids, t.RecipientID, t.SenderID)
	}
	return ids
}
