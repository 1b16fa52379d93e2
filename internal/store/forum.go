package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rburns/chorepoint/internal/model"
)

type ForumStore struct {
	db *sql.DB
}

func NewForumStore(db *sql.DB) *ForumStore {
	return &ForumStore{db: db}
}

const topicCols = `t.id, t.family_id, t.created_by, t.title, t.created_at`

func scanTopic(scanner interface{ Scan(...any) error }) (*model.ForumTopic, error) {
	var t model.ForumTopic
	err := scanner.Scan(&t.ID, &t.FamilyID, &t.CreatedBy, &t.Title, &t.CreatedAt, &t.PostCount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *ForumStore) CreateTopic(familyID, createdBy int64, title string) (*model.ForumTopic, error) {
	result, err := s.db.Exec(
		`INSERT INTO forum_topics (family_id, created_by, title) VALUES (?, ?, ?)`,
		familyID, createdBy, title,
	)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetTopic(id)
}

func (s *ForumStore) GetTopic(id int64) (*model.ForumTopic, error) {
	row := s.db.QueryRow(
		`SELECT `+topicCols+`, (SELECT COUNT(*) FROM forum_posts p WHERE p.topic_id = t.id)
		 FROM forum_topics t WHERE t.id = ?`,
		id,
	)
	t, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return t, nil
}

func (s *ForumStore) ListTopics(familyID int64) ([]model.ForumTopic, error) {
	rows, err := s.db.Query(
		`SELECT `+topicCols+`, (SELECT COUNT(*) FROM forum_posts p WHERE p.topic_id = t.id)
		 FROM forum_topics t WHERE t.family_id = ? ORDER BY t.created_at DESC, t.id DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []model.ForumTopic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

const postCols = `p.id, p.topic_id, p.author_id, p.content, p.created_at`

func (s *ForumStore) CreatePost(topicID, authorID int64, content string) (*model.ForumPost, error) {
	result, err := s.db.Exec(
		`INSERT INTO forum_posts (topic_id, author_id, content) VALUES (?, ?, ?)`,
		topicID, authorID, content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPost(id)
}

func (s *ForumStore) GetPost(id int64) (*model.ForumPost, error) {
	row := s.db.QueryRow(
		`SELECT `+postCols+`, (SELECT COUNT(*) FROM forum_post_likes l WHERE l.post_id = p.id)
		 FROM forum_posts p WHERE p.id = ?`,
		id,
	)
	var p model.ForumPost
	err := row.Scan(&p.ID, &p.TopicID, &p.AuthorID, &p.Content, &p.CreatedAt, &p.LikeCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (s *ForumStore) ListPosts(topicID int64) ([]model.ForumPost, error) {
	rows, err := s.db.Query(
		`SELECT `+postCols+`, (SELECT COUNT(*) FROM forum_post_likes l WHERE l.post_id = p.id)
		 FROM forum_posts p WHERE p.topic_id = ? ORDER BY p.created_at ASC, p.id ASC`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.ForumPost
	for rows.Next() {
		var p model.ForumPost
		if err := rows.Scan(&p.ID, &p.TopicID, &p.AuthorID, &p.Content, &p.CreatedAt, &p.LikeCount); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ToggleLike adds the user's like to the post, or removes it if already
// present. Returns true when the post ends up liked.
func (s *ForumStore) ToggleLike(postID, userID int64) (bool, error) {
	_, err := s.db.Exec(
		`INSERT INTO forum_post_likes (post_id, user_id) VALUES (?, ?)`,
		postID, userID,
	)
	if err == nil {
		return true, nil
	}
	if !strings.Contains(err.Error(), "UNIQUE") {
		return false, fmt.Errorf("insert like: %w", err)
	}

	_, err = s.db.Exec(
		`DELETE FROM forum_post_likes WHERE post_id = ? AND user_id = ?`,
		postID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	return false, nil
}
