package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
)

// Claims are the bearer token claims. Address is the acting principal and is
// mirrored in the subject.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 caller tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// Issue signs a token naming address as the caller.
func (s *JWTService) Issue(address domain.Address, expiresIn time.Duration) (string, error) {
	parsed, err := domain.ParseAddress(string(address))
	if err != nil {
		return "", err
	}
	if parsed.IsZero() {
		return "", dErrors.New(dErrors.CodeValidation, "cannot issue a token for the zero address")
	}
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: parsed.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   parsed.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// ValidateToken verifies signature, issuer and expiry.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Caller validates the token and returns its normalized address.
func (s *JWTService) Caller(tokenString string) (domain.Address, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	addr, err := domain.ParseAddress(claims.Address)
	if err != nil || addr.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token address is malformed")
	}
	if claims.Subject != "" && !addr.Equal(domain.Address(claims.Subject)) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token subject does not match address")
	}
	return addr, nil
}
