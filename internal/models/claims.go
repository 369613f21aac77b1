package models

import (
	"fmt"
	"math"
)

const (
	// MinAccessLevel and MaxAccessLevel bound the access level carried in claims.
	MinAccessLevel = 0
	MaxAccessLevel = 5
)

// UserClaims is the authorization metadata set on a user's identity.
type UserClaims struct {
	Role        Role `json:"role"`
	AccessLevel int  `json:"accessLevel"`
}

// ParseUserClaims strictly validates a raw claims object and returns the
// structured value. Exactly the keys role and accessLevel are allowed; the
// role must be a known value and the access level an integer in [0, 5].
// Anything else is rejected as a whole, never partially applied.
func ParseUserClaims(raw map[string]any) (UserClaims, error) {
	if raw == nil {
		return UserClaims{}, fmt.Errorf("claims missing")
	}
	if len(raw) != 2 {
		return UserClaims{}, fmt.Errorf("claims must contain exactly role and accessLevel")
	}
	roleRaw, ok := raw["role"]
	if !ok {
		return UserClaims{}, fmt.Errorf("claims missing role")
	}
	levelRaw, ok := raw["accessLevel"]
	if !ok {
		return UserClaims{}, fmt.Errorf("claims missing accessLevel")
	}
	roleStr, ok := roleRaw.(string)
	if !ok {
		return UserClaims{}, fmt.Errorf("role must be a string")
	}
	role := Role(roleStr)
	if role != RoleAdmin && role != RoleUser {
		return UserClaims{}, fmt.Errorf("unknown role %q", roleStr)
	}
	level, err := toAccessLevel(levelRaw)
	if err != nil {
		return UserClaims{}, err
	}
	if level < MinAccessLevel || level > MaxAccessLevel {
		return UserClaims{}, fmt.Errorf("accessLevel %d out of range [%d, %d]", level, MinAccessLevel, MaxAccessLevel)
	}
	return UserClaims{Role: role, AccessLevel: level}, nil
}

// toAccessLevel accepts the numeric forms a JSON decode can produce.
func toAccessLevel(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("accessLevel must be an integer")
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("accessLevel must be a number")
	}
}

// Map renders the claims in the wire shape expected by the identity provider.
func (c UserClaims) Map() map[string]any {
	return map[string]any{
		"role":        string(c.Role),
		"accessLevel": c.AccessLevel,
	}
}
