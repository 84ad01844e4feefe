package models

const (
	TeamForming   = "forming"
	TeamCompleted = "completed"
)

const (
	MemberInvited = "invited"
	MemberJoined  = "joined"
)

type Team struct {
	BaseModel

	EventID     uint   `gorm:"not null;uniqueIndex:idx_team_code"`
	Name        string `gorm:"not null"`
	InviteCode  string `gorm:"not null;uniqueIndex:idx_team_code"`
	LeaderID    uint   `gorm:"not null"`
	TargetSize  int    `gorm:"not null"`
	MemberCount int    `gorm:"not null"`
	Status      string `gorm:"not null"`

	// Relationships
	Members []TeamMember `gorm:"foreignKey:TeamID"`
}

type TeamMember struct {
	BaseModel

	TeamID        uint   `gorm:"not null;index"`
	EventID       uint   `gorm:"not null;uniqueIndex:idx_team_member_event"`
	ParticipantID uint   `gorm:"not null;uniqueIndex:idx_team_member_event"`
	Status        string `gorm:"not null"`
}
