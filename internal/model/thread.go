package model

import "time"

// Thread titled discussion; its content is the earliest reply
type Thread struct {
	ID         int64     `db:"id" json:"-"`
	PublicID   string    `db:"public_id"`
	Title      string    `db:"title"`
	CreatedBy  int64     `db:"created_by" json:"-"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
}

// Reply message in a thread, content kept as markdown source
type Reply struct {
	ID         int64     `db:"id" json:"-"`
	PublicID   string    `db:"public_id"`
	ThreadID   int64     `db:"thread_id" json:"-"`
	CreatedBy  int64     `db:"created_by" json:"-"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
}

// ReplyCount display count of a thread with total replies; the body is not a response
func ReplyCount(total int) int {
	if total <= 1 {
		return 0
	}
	return total - 1
}
