package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "pedcare/pkg/domain-errors"
	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/requestcontext"
)

// Claims are the access token claims shared with the rest of the product.
// The user id travels in "sub".
type Claims struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	Role      string `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
}

// NewJWTService builds the service. An empty issuer disables the issuer
// check, for tokens minted by other components.
func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

func (s *JWTService) GenerateAccessToken(p requestcontext.Principal, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		PatientID: p.PatientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token not yet valid")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Role == "" {
		claims.Role = audit.RolePatient
	}
	switch claims.Role {
	case audit.RolePatient, audit.RoleDoctor, audit.RoleOwner:
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token payload")
	}
	return claims, nil
}

// Principal converts validated claims into the request principal.
func (c *Claims) Principal() requestcontext.Principal {
	return requestcontext.Principal{
		UserID:    c.Subject,
		Email:     c.Email,
		FullName:  c.FullName,
		Role:      c.Role,
		PatientID: c.PatientID,
	}
}
