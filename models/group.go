package models

import "gorm.io/gorm"

// Group is a named category posts may optionally belong to.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null;uniqueIndex" json:"title"`
	Slug        string `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

func (g Group) String() string {
	return g.Title
}

// BeforeDelete detaches posts from the group; the posts themselves survive.
func (g *Group) BeforeDelete(tx *gorm.DB) error {
	if g.ID == 0 {
		return nil
	}
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&Post{}).
		Where("group_id = ?", g.ID).
		Update("group_id", nil).Error
}
