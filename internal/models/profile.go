package models

import "time"

// AccountProfile — снимок данных аккаунта из внешнего источника.
// Используется пайплайном верификации и моделью оценки, в базе не хранится.
type AccountProfile struct {
	Username        string    `json:"username"`
	Exists          bool      `json:"exists"`
	Private         bool      `json:"private"`
	FollowerCount   int64     `json:"follower_count"`
	Posts           []Post    `json:"posts"`
	FollowerHistory []int64   `json:"follower_history"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Post описывает одну публикацию аккаунта.
type Post struct {
	PostedAt time.Time `json:"posted_at"`
	Views    int64     `json:"views"`
}
