package identity

// Role is the coarse capability of an authenticated caller. Credential
// verification happens upstream; the core only consumes the result.
type Role string

const (
	RoleRequester Role = "requester"
	RoleWorker    Role = "worker"
	RoleAdmin     Role = "admin"
)

// Principal identifies an authenticated caller for authorization decisions.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsWorker() bool {
	return p.Role == RoleWorker
}
