package main

import "time"

// NamedColor is the closed palette the UI exposes for lists and tags.
type NamedColor string

const (
	ColorGray   NamedColor = "gray"
	ColorRed    NamedColor = "red"
	ColorOrange NamedColor = "orange"
	ColorYellow NamedColor = "yellow"
	ColorGreen  NamedColor = "green"
	ColorBlue   NamedColor = "blue"
	ColorPurple NamedColor = "purple"
	ColorPink   NamedColor = "pink"
)

func (c NamedColor) Valid() bool {
	switch c {
	case ColorGray, ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple, ColorPink:
		return true
	}
	return false
}

type TaskList struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Color           NamedColor `json:"color"`
	HasTimeTracking bool       `json:"has_time_tracking"`
	HasDueDates     bool       `json:"has_due_dates"`
	IsAutoOrdered   bool       `json:"is_auto_ordered"`
	OwnerID         int64      `json:"owner_user_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Item struct {
	ID          int64      `json:"id"`
	ListID      int64      `json:"list_id"`
	Title       string     `json:"title"`
	Note        string     `json:"note"`
	Pos         int64      `json:"pos"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	TrackedSecs int64      `json:"tracked_seconds"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Tag struct {
	ID     int64      `json:"id"`
	ListID int64      `json:"list_id"`
	Name   string     `json:"name"`
	Color  NamedColor `json:"color"`
}

// Member roles: 1=member, 2=owner.
const (
	RoleMember = 1
	RoleOwner  = 2
)

type Member struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   int    `json:"role"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
