package usecase

import "github.com/google/uuid"

// IdentityProvider 負責把外部憑證換成已驗證的呼叫者身分
// 核心不自己解析憑證，一律透過這個介面
type IdentityProvider interface {
	// Issue 為帳戶簽發憑證
	Issue(accountID uuid.UUID) (string, error)
	// Verify 驗證憑證並回傳帳戶 ID，無效或過期回傳 domain.ErrInvalidCredential
	Verify(credential string) (uuid.UUID, error)
}
