package constants

const (
	Admin  = "admin"
	Farmer = "farmer"
	Buyer  = "buyer"
)

// ValidRoles is the set of roles the identity service writes into sessions.
var ValidRoles = []string{Farmer, Buyer, Admin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
