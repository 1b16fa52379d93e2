package store

import (
	"testing"

	"github.com/rburns/chorepoint/internal/model"
)

func TestForumTopicsAndPosts(t *testing.T) {
	db := setupTestDB(t)
	fs := NewForumStore(db)
	f := seedFamily(t, db)
	parent := seedUser(t, db, f.ID, model.RoleParent)
	child := seedUser(t, db, f.ID, model.RoleChild)

	topic, err := fs.CreateTopic(f.ID, parent.ID, "Allowance day")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	if topic.PostCount != 0 {
		t.Errorf("fresh topic post count = %d", topic.PostCount)
	}
	if topic.CreatedAt.IsZero() {
		t.Error("topic created_at not scanned")
	}

	if _, err := fs.CreatePost(topic.ID, parent.ID, "Saturdays from now on."); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := fs.CreatePost(topic.ID, child.ID, "Works for me!"); err != nil {
		t.Fatalf("create post: %v", err)
	}

	got, _ := fs.GetTopic(topic.ID)
	if got.PostCount != 2 {
		t.Errorf("post count = %d, want 2", got.PostCount)
	}

	posts, err := fs.ListPosts(topic.ID)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	// Oldest first so the thread reads top down.
	if posts[0].AuthorID != parent.ID {
		t.Errorf("first post author = %d, want %d", posts[0].AuthorID, parent.ID)
	}
}

func TestListTopicsScopedToFamily(t *testing.T) {
	db := setupTestDB(t)
	fs := NewForumStore(db)
	fam := seedFamily(t, db)
	other := seedFamily(t, db)
	u1 := seedUser(t, db, fam.ID, model.RoleParent)
	u2 := seedUser(t, db, other.ID, model.RoleParent)

	fs.CreateTopic(fam.ID, u1.ID, "Ours")
	fs.CreateTopic(other.ID, u2.ID, "Theirs")

	topics, err := fs.ListTopics(fam.ID)
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	if len(topics) != 1 || topics[0].Title != "Ours" {
		t.Errorf("topics = %v", topics)
	}
}

func TestToggleLike(t *testing.T) {
	db := setupTestDB(t)
	fs := NewForumStore(db)
	f := seedFamily(t, db)
	parent := seedUser(t, db, f.ID, model.RoleParent)
	child := seedUser(t, db, f.ID, model.RoleChild)

	topic, _ := fs.CreateTopic(f.ID, parent.ID, "Topic")
	post, _ := fs.CreatePost(topic.ID, parent.ID, "Post")

	liked, err := fs.ToggleLike(post.ID, child.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !liked {
		t.Error("first toggle should like")
	}

	got, _ := fs.GetPost(post.ID)
	if got.LikeCount != 1 {
		t.Errorf("like count = %d, want 1", got.LikeCount)
	}

	liked, err = fs.ToggleLike(post.ID, child.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if liked {
		t.Error("second toggle should unlike")
	}
	got, _ = fs.GetPost(post.ID)
	if got.LikeCount != 0 {
		t.Errorf("like count = %d, want 0", got.LikeCount)
	}
}

func TestLikesCountPerUser(t *testing.T) {
	db := setupTestDB(t)
	fs := NewForumStore(db)
	f := seedFamily(t, db)
	parent := seedUser(t, db, f.ID, model.RoleParent)
	childA := seedUser(t, db, f.ID, model.RoleChild)
	childB := seedUser(t, db, f.ID, model.RoleChild)

	topic, _ := fs.CreateTopic(f.ID, parent.ID, "Topic")
	post, _ := fs.CreatePost(topic.ID, parent.ID, "Post")

	fs.ToggleLike(post.ID, childA.ID)
	fs.ToggleLike(post.ID, childB.ID)

	got, _ := fs.GetPost(post.ID)
	if got.LikeCount != 2 {
		t.Errorf("like count = %d, want 2", got.LikeCount)
	}
}
