package domain

import (
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/targeting"
	"github.com/bwmarrin/snowflake"
)

// User is an end-user account able to browse the feed and redeem promos.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"type:text;not null;uniqueIndex"`
	Name         string       `gorm:"type:text;not null"`
	Surname      string       `gorm:"type:text;not null"`
	AvatarURL    *string      `gorm:"type:text"`
	Age          *int
	Country      *string   `gorm:"type:text"`
	PasswordHash string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Profile returns the targeting attributes of the user.
func (u *User) Profile() targeting.Profile {
	return targeting.Profile{Age: u.Age, Country: u.Country}
}

// Company is a business account that issues promos.
type Company struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"type:text;not null;uniqueIndex"`
	Name         string       `gorm:"type:text;not null"`
	PasswordHash string       `gorm:"type:text;not null"`
	Active       bool         `gorm:"not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// ActorType distinguishes session owners.
type ActorType string

const (
	ActorTypeUser    ActorType = "user"
	ActorTypeCompany ActorType = "company"
)

// Session is a bearer token grant. Expired rows are swept by the cleanup
// job; presenting an expired token is equivalent to presenting none.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Token     string       `gorm:"type:text;not null;uniqueIndex"`
	ActorType ActorType    `gorm:"type:text;not null"`
	ActorID   snowflake.ID `gorm:"not null;index"`
	ExpiresAt time.Time    `gorm:"not null;index"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
