package model

import "time"

// Tag unique label attached to threads
type Tag struct {
	ID         int64     `db:"id" json:"-"`
	PublicID   string    `db:"public_id"`
	Name       string    `db:"name"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
}

// TagWithCount tag and the number of threads using it
type TagWithCount struct {
	Tag
	Threads int `db:"threads"`
}

// ThreadTag thread <-> tag association, unique per pair
type ThreadTag struct {
	ThreadID  int64     `db:"thread_id"`
	TagID     int64     `db:"tag_id"`
	CreatedAt time.Time `db:"created_at"`
}
