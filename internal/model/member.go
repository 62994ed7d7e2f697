package model

// Member represents a row in the `membership` table.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name chosen at signup.
//	Email        – unique login email.
//	PasswordHash – bcrypt hash of the password (membership.password).
type Member struct {
	ID           uint64 // membership.id
	Name         string // membership.name
	Email        string // membership.email
	PasswordHash string // membership.password
}

// MemberSnapshot is the identity carried inside a signed token and returned
// by GET /api/user/auth.
type MemberSnapshot struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot returns the token view of the member.
func (m Member) Snapshot() MemberSnapshot {
	return MemberSnapshot{ID: m.ID, Name: m.Name, Email: m.Email}
}
