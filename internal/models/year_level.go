package models

import "time"

// YearLevel is a grade level such as "Grade 7".
type YearLevel struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// YearLevelFilter defines list criteria.
type YearLevelFilter struct {
	Search   string
	Page     int
	PageSize int
}
