package permissions

import "github.com/swapspot/swapspot/internal/db"

const (
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

func IsAdmin(user *db.User) bool {
	return user != nil && user.Role == RoleAdmin
}

// CanModerate gates the review queue and ban actions.
func CanModerate(user *db.User) bool {
	if user == nil {
		return false
	}
	return user.Role == RoleAdmin || user.Role == RoleModerator
}
