package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that authors posts and comments. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	Email        string    `gorm:"size:254" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns "first last", falling back to the username.
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

func (u User) String() string {
	return u.Username
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// BeforeDelete removes everything the user owns: follow rows on both sides,
// their comments, comments under their posts, and the posts themselves.
func (u *User) BeforeDelete(tx *gorm.DB) error {
	if u.ID == 0 {
		return nil
	}
	db := tx.Session(&gorm.Session{NewDB: true})
	if err := db.Where("user_id = ? OR author_id = ?", u.ID, u.ID).Delete(&Follow{}).Error; err != nil {
		return err
	}
	ownPosts := db.Model(&Post{}).Select("id").Where("author_id = ?", u.ID)
	if err := db.Where("author_id = ? OR post_id IN (?)", u.ID, ownPosts).Delete(&Comment{}).Error; err != nil {
		return err
	}
	return db.Where("author_id = ?", u.ID).Delete(&Post{}).Error
}
