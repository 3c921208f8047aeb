package models

import "time"

// MemberRole is a member's role inside a group.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Group is a set of users sharing expenses. The creator is always an admin
// member and can never leave or be removed.
type Group struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description,omitempty"`
	Code        string `gorm:"type:varchar(6);uniqueIndex;not null" json:"code"`
	CreatorID   string `gorm:"type:uuid;not null;index" json:"creator_id"`

	// Relationships
	Creator *User         `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	Base
	GroupID  string     `gorm:"type:uuid;not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID   string     `gorm:"type:uuid;not null;uniqueIndex:idx_group_member;index" json:"user_id"`
	Role     MemberRole `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt time.Time  `gorm:"not null" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsMember reports whether userID is the creator or a listed member.
func (g *Group) IsMember(userID string) bool {
	if g.CreatorID == userID {
		return true
	}
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID may administer the group.
func (g *Group) IsAdmin(userID string) bool {
	if g.CreatorID == userID {
		return true
	}
	for _, m := range g.Members {
		if m.UserID == userID && m.Role == MemberRoleAdmin {
			return true
		}
	}
	return false
}

// MemberIDs returns the creator followed by every other member, without duplicates.
func (g *Group) MemberIDs() []string {
	ids := []string{g.CreatorID}
	seen := map[string]bool{g.CreatorID: true}
	for _, m := range g.Members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// MemberName returns the display name of a loaded member, or "" if unknown.
func (g *Group) MemberName(userID string) string {
	if g.Creator != nil && g.Creator.ID == userID {
		return g.Creator.DisplayName()
	}
	for _, m := range g.Members {
		if m.UserID == userID && m.User != nil {
			return m.User.DisplayName()
		}
	}
	return ""
}
