package constants

import roles "farmtrade-backend/internal/pkg/constants"

// PermissionRoles maps each permission to the roles allowed to perform it.
// Participant ownership is checked separately by the handlers.
var PermissionRoles = map[string][]string{
	CreateTransaction:    {roles.Farmer, roles.Buyer, roles.Admin},
	ViewTransaction:      {roles.Farmer, roles.Buyer, roles.Admin},
	UpdateTransaction:    {roles.Farmer, roles.Buyer, roles.Admin},
	RateTransaction:      {roles.Farmer, roles.Buyer, roles.Admin},
	ViewAllTransactions:  {roles.Admin},
	DeleteTransaction:    {roles.Admin},
	OverrideTransaction:  {roles.Admin},
	ViewRankings:         {roles.Admin},
	ViewCompletionWindow: {roles.Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	allowed, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
