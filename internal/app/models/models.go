package models

// MemberRole is a user's role inside one community
type MemberRole string

const (
	RoleMember    MemberRole = "member"
	RoleModerator MemberRole = "moderator"
	RoleAdmin     MemberRole = "admin"
)

// CanModerate reports whether the role may moderate community content
func (r MemberRole) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}
