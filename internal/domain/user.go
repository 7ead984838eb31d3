package domain

// Role is a user's access level.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleUser       Role = "USER"
)

// AllTables grants write access to every table.
const AllTables = "all"

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleSupervisor || r == RoleUser
}

// User is an account of the field team.
type User struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         Role     `json:"role"`
	Tables       []string `json:"tables"`
	Active       bool     `json:"active"`
}

// IsPrivileged is true for ADMIN and SUPERVISOR.
func (u User) IsPrivileged() bool {
	return u.Role == RoleAdmin || u.Role == RoleSupervisor
}

// CanWrite reports whether u may create or edit rows of kind.
func (u User) CanWrite(kind TableKind) bool {
	if u.IsPrivileged() {
		return true
	}
	for _, t := range u.Tables {
		if t == AllTables || t == string(kind) {
			return true
		}
	}
	return false
}

// NormalizeTables applies the role rule: privileged roles always get "all".
func NormalizeTables(role Role, tables []string) []string {
	if role == RoleAdmin || role == RoleSupervisor {
		return []string{AllTables}
	}
	if tables == nil {
		return []string{}
	}
	return tables
}
