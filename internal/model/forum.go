package model

import "time"

type ForumTopic struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	CreatedBy int64     `json:"created_by"`
	Title     string    `json:"title"`
	PostCount int       `json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
}

type ForumPost struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}
