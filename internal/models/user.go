package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Experience levels a user or session can carry.
const (
	LevelJuniorI  = "JUNIOR_I"
	LevelJuniorII = "JUNIOR_II"
	LevelMid      = "MID"
	LevelUpperMid = "UPPER_MID"
	LevelSenior   = "SENIOR"
)

var levels = map[string]bool{
	LevelJuniorI:  true,
	LevelJuniorII: true,
	LevelMid:      true,
	LevelUpperMid: true,
	LevelSenior:   true,
}

// IsValidLevel reports whether level is one of the known experience levels.
func IsValidLevel(level string) bool {
	return levels[level]
}

// User represents a registered user. Email is the login identifier and is
// always stored lowercased; username is optional and stored as NULL when
// blank so the unique index only applies to real values.
type User struct {
	gorm.Model
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Username     *string        `gorm:"uniqueIndex" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Role         string         `json:"role"`
	Level        string         `gorm:"size:16" json:"level"`
	TechStack    datatypes.JSON `json:"tech_stack"`
}
