package domain

import "strings"

// RolePrefix marks role-derived authorities inside the token scope claim.
const RolePrefix = "ROLE_"

// Principal carries the identity and authorization facts attached to a request.
type Principal struct {
	Subject     string
	Roles       []string
	Permissions []string
}

// Authorities returns the flattened authority set: prefixed roles followed by
// permission names verbatim.
func (p Principal) Authorities() []string {
	authorities := make([]string, 0, len(p.Roles)+len(p.Permissions))
	for _, role := range p.Roles {
		if role == "" {
			continue
		}
		authorities = append(authorities, prefixRole(role))
	}
	for _, permission := range p.Permissions {
		if permission == "" {
			continue
		}
		authorities = append(authorities, permission)
	}
	return authorities
}

// HasAuthority reports whether the principal holds the named authority.
func (p Principal) HasAuthority(authority string) bool {
	for _, candidate := range p.Authorities() {
		if candidate == authority {
			return true
		}
	}
	return false
}

// BuildScope serializes the principal's authorities into the space-joined
// scope claim. Role names gain the ROLE_ prefix only when they do not
// already carry it; permission names pass through untouched.
func BuildScope(p Principal) string {
	return strings.Join(p.Authorities(), " ")
}

// AuthoritiesFromScope recovers the authority set from a scope claim by
// splitting on whitespace. Scope tokens are authorities as-is: roles were
// prefixed at issuance, so re-prefixing here would corrupt permissions.
func AuthoritiesFromScope(scope string) []string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return nil
	}
	authorities := make([]string, 0, len(fields))
	for _, field := range fields {
		authorities = append(authorities, field)
	}
	return authorities
}

// PrincipalFromScope rebuilds a principal from a token subject and scope
// claim, partitioning authorities back into roles and permissions.
func PrincipalFromScope(subject, scope string) Principal {
	principal := Principal{Subject: subject}
	for _, authority := range AuthoritiesFromScope(scope) {
		if strings.HasPrefix(authority, RolePrefix) {
			principal.Roles = append(principal.Roles, strings.TrimPrefix(authority, RolePrefix))
			continue
		}
		principal.Permissions = append(principal.Permissions, authority)
	}
	return principal
}

func prefixRole(role string) string {
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}
