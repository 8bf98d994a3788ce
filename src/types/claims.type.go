package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the actor credential carried in the bearer token. Subject holds
// the user id.
type Claims struct {
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	TenantID uint   `json:"tenant_id"`
	UserID   uint   `json:"user_id"`
	jwt.RegisteredClaims
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetExpirationTime()
}
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetIssuedAt()
}
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetNotBefore()
}
func (c Claims) GetIssuer() (string, error) {
	return c.RegisteredClaims.GetIssuer()
}
func (c Claims) GetSubject() (string, error) {
	return c.RegisteredClaims.GetSubject()
}
func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return c.RegisteredClaims.GetAudience()
}

// System is the credential the scheduler acts with.
func System() *Claims {
	return &Claims{Role: ROLE_ADMIN}
}
