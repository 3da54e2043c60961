package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Admin is a root identity of the hierarchy, it never has a parent
type Admin struct {
	ID        uint64    `gorm:"primary_key" json:"id"`
	Name      string    `json:"name"`
	Username  string    `gorm:"unique;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Admin) TableName() string {
	return "admins"
}

// ValidatePass check if the given password matches the admin
func (a *Admin) ValidatePass(pass string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(pass)) == nil
}
