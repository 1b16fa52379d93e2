package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
	"github.com/rburns/chorepoint/internal/websocket"
)

type ForumHandler struct {
	forum  *store.ForumStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewForumHandler(fs *store.ForumStore, hub *websocket.Hub, logger *slog.Logger) *ForumHandler {
	return &ForumHandler{
		forum:  fs,
		hub:    hub,
		logger: logger.With("component", "forum_handler"),
	}
}

// loadTopic resolves a topic and confirms it belongs to the caller's family.
func (h *ForumHandler) loadTopic(r *http.Request, topicID int64) (*model.ForumTopic, error) {
	topic, err := h.forum.GetTopic(topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, apperr.New(apperr.KindNotFound, "topic not found")
	}
	if topic.FamilyID != auth.FamilyID(r.Context()) {
		return nil, apperr.New(apperr.KindForbidden, "topic belongs to another family")
	}
	return topic, nil
}

type createTopicRequest struct {
	Title string `json:"title"`
}

func (h *ForumHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "title is required"))
		return
	}

	familyID := auth.FamilyID(r.Context())
	topic, err := h.forum.CreateTopic(familyID, auth.UserID(r.Context()), title)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(familyID, websocket.NewMessage("forum_topic", "created", topic.ID, nil))
	writeJSON(w, http.StatusCreated, topic)
}

func (h *ForumHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.forum.ListTopics(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if topics == nil {
		topics = []model.ForumTopic{}
	}
	writeJSON(w, http.StatusOK, topics)
}

type createPostRequest struct {
	Content string `json:"content"`
}

func (h *ForumHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	topicID, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid topic id"))
		return
	}

	var req createPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "content is required"))
		return
	}

	topic, err := h.loadTopic(r, topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.forum.CreatePost(topic.ID, auth.UserID(r.Context()), strings.TrimSpace(req.Content))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(topic.FamilyID, websocket.NewMessage("forum_post", "created", post.ID, map[string]any{"topic_id": topic.ID}))
	writeJSON(w, http.StatusCreated, post)
}

func (h *ForumHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	topicID, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid topic id"))
		return
	}

	topic, err := h.loadTopic(r, topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.forum.ListPosts(topic.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []model.ForumPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// ToggleLike flips the caller's like on a post and returns the new state.
func (h *ForumHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid post id"))
		return
	}

	post, err := h.forum.GetPost(postID)
	if err != nil {
		writeError(w, err)
		return
	}
	if post == nil {
		writeError(w, apperr.New(apperr.KindNotFound, "post not found"))
		return
	}
	if _, err := h.loadTopic(r, post.TopicID); err != nil {
		writeError(w, err)
		return
	}

	liked, err := h.forum.ToggleLike(post.ID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.forum.GetPost(post.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liked": liked, "post": updated})
}
