// Package access maps clinic roles to capabilities and verifies bearer tokens.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RolePractitioner Role = "MEDICO"
	RoleReceptionist Role = "SECRETARIA"
	RoleManager      Role = "GERENTE"
)

type Capability string

const (
	CapReadAppointments   Capability = "appointments:read"
	CapWriteAppointments  Capability = "appointments:write"
	CapAttendAppointments Capability = "appointments:attend"
	CapReadRecords        Capability = "records:read"
	CapWriteRecords       Capability = "records:write"
	CapReadAudit          Capability = "audit:read"
	CapManagePatients     Capability = "patients:write"
	CapManageStaff        Capability = "practitioners:write"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RolePractitioner: {
		CapReadAppointments:   true,
		CapAttendAppointments: true,
		CapReadRecords:        true,
		CapWriteRecords:       true,
	},
	RoleReceptionist: {
		CapReadAppointments:  true,
		CapWriteAppointments: true,
		CapManagePatients:    true,
	},
	RoleManager: {
		CapReadAppointments: true,
		CapReadAudit:        true,
		CapManagePatients:   true,
		CapManageStaff:      true,
	},
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) Can(c Capability) bool {
	return p.Role.Can(c)
}

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Verifier issues and checks HS256 tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (v *Verifier) Parse(raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrMissingToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return Principal{UserID: id, Role: claims.Role}, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
