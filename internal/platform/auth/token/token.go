package token

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/config"
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
)

var ErrUnauthorized = errors.New("unauthorized")

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	MemberID domain.MemberID
	Role     domain.Role
}

func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

// Service issues and verifies HS256 member access tokens.
type Service struct {
	cfg   config.TokenConfig
	clock clockport.Clock
}

func NewService(cfg config.TokenConfig, clk clockport.Clock) *Service {
	return &Service{cfg: cfg, clock: clk}
}

// Issue signs a token for the member and returns it with its expiry.
func (s *Service) Issue(memberID domain.MemberID, role domain.Role) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.cfg.TTL)
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   string(memberID),
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: exp.Unix(),
		},
		Role: string(role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, issuer, expiry and not-before against the service clock.
func (s *Service) Verify(raw string) (Principal, error) {
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return Principal{}, ErrUnauthorized
	}

	now := s.clock.Now().Unix()
	if !claims.VerifyIssuer(s.cfg.Issuer, true) ||
		!claims.VerifyExpiresAt(now, true) ||
		!claims.VerifyNotBefore(now, false) {
		return Principal{}, ErrUnauthorized
	}
	if claims.Subject == "" {
		return Principal{}, ErrUnauthorized
	}
	role := domain.Role(claims.Role)
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return Principal{}, ErrUnauthorized
	}
	return Principal{MemberID: domain.MemberID(claims.Subject), Role: role}, nil
}
