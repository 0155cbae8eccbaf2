package jwtident

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
)

// Provider 以 HS256 JWT 實現 IdentityProvider
// 核心只認得 Issue/Verify；憑證格式是這個 adapter 的事
type Provider struct {
	signingKey []byte
	expiry     time.Duration
}

// NewProvider 建立一個新的 Provider 實例
//
// 參數:
//
//	signingKey: HMAC 簽章金鑰
//	expiry: 憑證有效期
func NewProvider(signingKey []byte, expiry time.Duration) *Provider {
	return &Provider{
		signingKey: signingKey,
		expiry:     expiry,
	}
}

// Issue 為帳戶簽發憑證 (sub = 帳戶 UUID)
func (p *Provider) Issue(accountID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.signingKey)
}

// Verify 驗證憑證並取出帳戶 ID
// 任何解析/簽章/過期問題一律回傳 domain.ErrInvalidCredential，不洩漏細節
func (p *Provider) Verify(credential string) (uuid.UUID, error) {
	claims := new(jwt.RegisteredClaims)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return p.signingKey, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, domain.ErrInvalidCredential
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidCredential
	}
	return accountID, nil
}

var _ usecase.IdentityProvider = (*Provider)(nil)
