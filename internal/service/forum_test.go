package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum_go/internal/core/config"
	"forum_go/internal/core/database"
	"forum_go/internal/model"
	"forum_go/internal/render"
	"forum_go/internal/repository"
	"forum_go/internal/search"
)

// fakeIndex in-memory index; Search returns configured hits or err
type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]search.Document
	hits    []search.Hit
	err     error
	queries []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]search.Document)}
}

func (f *fakeIndex) Name() string { return "fake" }

func (f *fakeIndex) Index(_ context.Context, doc search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, query string, _ int) ([]search.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeIndex) Close() error { return nil }

func (f *fakeIndex) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type denyPolicy struct{}

func (denyPolicy) CanModifyThread(context.Context, int64, string) (bool, error) { return false, nil }

func (denyPolicy) CanModifyReply(context.Context, int64, string) (bool, error) { return false, nil }

type fixture struct {
	svc   *ForumService
	users *UserService
	index *fakeIndex
	repos struct {
		threads repository.ThreadRepository
		replies repository.ReplyRepository
	}
}

func newFixture(t *testing.T, opts ...func(*ForumDeps)) *fixture {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "forum.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{index: newFakeIndex()}
	f.users = NewUserService(repository.NewUserRepository(db), nil, &config.CacheConfig{L1Cap: 8, L2TTL: 60})
	f.repos.threads = repository.NewThreadRepository(db)
	f.repos.replies = repository.NewReplyRepository(db)

	deps := ForumDeps{
		Threads:    f.repos.threads,
		Replies:    f.repos.replies,
		Tags:       repository.NewTagRepository(db),
		ThreadTags: repository.NewThreadTagRepository(db),
		Users:      f.users,
		Index:      f.index,
		Indexer:    NewIndexer(f.index, 0, 0),
		Renderer:   render.New(),
		Config:     &config.ForumConfig{DefaultPageSize: 2, MaxPageSize: 5},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = NewForumService(deps)
	return f
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), email, "")
	require.NoError(t, err)
	return u
}

func (f *fixture) thread(t *testing.T, title, content string, author *model.User, tags ...string) *ThreadView {
	t.Helper()
	v, err := f.svc.CreateThread(context.Background(), CreateThreadInput{
		Title: title, Content: content, Tags: tags, AuthorID: author.ID,
	})
	require.NoError(t, err)
	return v
}

func TestHelloWorldScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")

	created := f.thread(t, "Hello", "World", u1)
	_, err := f.svc.AddReply(ctx, created.PublicID, "Reply1", u2.ID)
	require.NoError(t, err)

	replies, err := f.svc.GetReplies(ctx, created.PublicID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "u2@example.com", replies[1].Author.Name)

	view, err := f.svc.GetThread(ctx, created.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ReplyCount)
	require.True(t, view.HasContent())
	assert.Equal(t, render.New().Markdown("World"), *view.Content)
	assert.Equal(t, u1.PublicID, view.Author.PublicID)

	discussion, err := f.svc.GetDiscussion(ctx, created.PublicID)
	require.NoError(t, err)
	require.Len(t, discussion, 1)
	assert.Equal(t, replies[1].PublicID, discussion[0].PublicID)

	assert.Equal(t, []string{
		search.ReplyDocID(created.PublicID, replies[1].PublicID),
		search.ThreadDocID(created.PublicID),
	}, f.index.ids())
}

func TestCreateThreadRendersContent(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	created := f.thread(t, "T", "C", u)
	require.NotNil(t, created.Content)
	assert.Equal(t, "<p>C</p>", *created.Content)
	assert.Zero(t, created.ReplyCount)

	view, err := f.svc.GetThread(context.Background(), created.PublicID)
	require.NoError(t, err)
	assert.Equal(t, *created.Content, *view.Content)
}

func TestCreateThreadDuplicateTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Hello", "World", u)

	_, err := f.svc.CreateThread(ctx, CreateThreadInput{Title: "Hello", Content: "Again", AuthorID: u.ID})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	replies, err := f.svc.GetReplies(ctx, created.PublicID)
	require.NoError(t, err)
	assert.Len(t, replies, 1)
}

func TestCreateThreadConcurrentTitle(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	const workers = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateThread(context.Background(), CreateThreadInput{Title: "Same", Content: "x", AuthorID: u.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicateTitle):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dups)
}

func TestCreateThreadValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	cases := map[string]CreateThreadInput{
		"blank title":   {Title: "   ", Content: "x", AuthorID: u.ID},
		"long title":    {Title: string(make([]rune, 101)), Content: "x", AuthorID: u.ID},
		"empty content": {Title: "ok", Content: "", AuthorID: u.ID},
		"long tag":      {Title: "ok", Content: "x", Tags: []string{"abcdefghijklmnopqrstuvwxyz"}, AuthorID: u.ID},
		"no author":     {Title: "ok", Content: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateThread(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := f.svc.CreateThread(ctx, CreateThreadInput{Title: "orphan", Content: "x", AuthorID: 99})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateThreadTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	created := f.thread(t, "Tagged", "x", u, "go", " go ", "", "sql")
	assert.Equal(t, []string{"go", "sql"}, created.Tags)

	view, err := f.svc.GetThread(ctx, created.PublicID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go", "sql"}, view.Tags)

	tags, err := NewTagService(f.svc.tags).List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestAddReplyMissingThread(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	_, err := f.svc.AddReply(context.Background(), "6f1c1c56-6f8d-4a52-8b0e-000000000000", "hi", u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AddReply(context.Background(), "not-a-uuid", "hi", u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOnlyReplyKeepsThread(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Lonely", "body", u)

	replies, err := f.svc.GetReplies(ctx, created.PublicID)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	require.NoError(t, f.svc.DeleteReply(ctx, u.ID, replies[0].PublicID))

	view, err := f.svc.GetThread(ctx, created.PublicID)
	require.NoError(t, err)
	assert.False(t, view.HasContent())
	assert.Zero(t, view.ReplyCount)

	discussion, err := f.svc.GetDiscussion(ctx, created.PublicID)
	require.NoError(t, err)
	assert.Empty(t, discussion)

	assert.ErrorIs(t, f.svc.DeleteReply(ctx, u.ID, replies[0].PublicID), ErrNotFound)
}

func TestDeleteFirstReplyPromotesNext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Hello", "World", u)
	second, err := f.svc.AddReply(ctx, created.PublicID, "Reply1", u.ID)
	require.NoError(t, err)

	replies, err := f.svc.GetReplies(ctx, created.PublicID)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteReply(ctx, u.ID, replies[0].PublicID))

	view, err := f.svc.GetThread(ctx, created.PublicID)
	require.NoError(t, err)
	require.NotNil(t, view.Content)
	assert.Equal(t, second.Content, *view.Content)
	assert.Zero(t, view.ReplyCount)

	doc := f.index.docs[search.ThreadDocID(created.PublicID)]
	assert.Equal(t, "Reply1", doc.Text)
	assert.NotContains(t, f.index.docs, search.ReplyDocID(created.PublicID, second.PublicID),
		"promoted reply is indexed only through the thread document")
}

func TestDeleteThreadCleansUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Doomed", "body", u, "misc")
	_, err := f.svc.AddReply(ctx, created.PublicID, "r1", u.ID)
	require.NoError(t, err)
	other := f.thread(t, "Survivor", "body", u, "misc")

	require.NoError(t, f.svc.DeleteThread(ctx, u.ID, created.PublicID))

	_, err = f.svc.GetThread(ctx, created.PublicID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{search.ThreadDocID(other.PublicID)}, f.index.ids())

	results, err := f.svc.SearchThreadsByTags(ctx, []string{"misc"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, other.PublicID, results[0].PublicID)

	assert.ErrorIs(t, f.svc.DeleteThread(ctx, u.ID, created.PublicID), ErrNotFound)
}

func TestPolicyCheckedBeforeExistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *ForumDeps) { d.Policy = denyPolicy{} })
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Mine", "x", u)

	missing := "6f1c1c56-6f8d-4a52-8b0e-000000000000"
	assert.ErrorIs(t, f.svc.DeleteThread(ctx, u.ID, missing), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteReply(ctx, u.ID, missing), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteThread(ctx, u.ID, created.PublicID), ErrForbidden)

	title := "Renamed"
	_, err := f.svc.UpdateThread(ctx, u.ID, created.PublicID, UpdateThreadInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOwnerPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *ForumDeps) {
		d.Policy = &OwnerPolicy{threads: d.Threads, replies: d.Replies}
	})
	owner := f.user(t, "owner@example.com")
	stranger := f.user(t, "stranger@example.com")
	created := f.thread(t, "Owned", "x", owner)
	reply, err := f.svc.AddReply(ctx, created.PublicID, "mine", owner.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteReply(ctx, stranger.ID, reply.PublicID), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteThread(ctx, stranger.ID, created.PublicID), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteThread(ctx, stranger.ID, "6f1c1c56-6f8d-4a52-8b0e-000000000000"), ErrNotFound)

	require.NoError(t, f.svc.DeleteReply(ctx, owner.ID, reply.PublicID))
	require.NoError(t, f.svc.DeleteThread(ctx, owner.ID, created.PublicID))
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, AllowAllPolicy{}, p)

	p, err = NewPolicy(PolicyOwner, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OwnerPolicy{}, p)

	_, err = NewPolicy("admins-only", nil, nil)
	assert.Error(t, err)
}

func TestUpdateThread(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Original", "old body", u, "a")
	f.thread(t, "Taken", "x", u)

	taken := "Taken"
	_, err := f.svc.UpdateThread(ctx, u.ID, created.PublicID, UpdateThreadInput{Title: &taken})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	title, body, tags := "Renamed", "**new** body", []string{"b", "c"}
	view, err := f.svc.UpdateThread(ctx, u.ID, created.PublicID, UpdateThreadInput{
		Title: &title, Content: &body, Tags: &tags,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Title)
	assert.Equal(t, "<p><strong>new</strong> body</p>", *view.Content)
	assert.ElementsMatch(t, []string{"b", "c"}, view.Tags)
	assert.True(t, view.ModifiedAt.After(created.ModifiedAt) || view.ModifiedAt.Equal(created.ModifiedAt))

	replies, err := f.svc.GetReplies(ctx, created.PublicID)
	require.NoError(t, err)
	assert.Len(t, replies, 1, "edits overwrite the body in place")

	doc := f.index.docs[search.ThreadDocID(created.PublicID)]
	assert.Equal(t, "Renamed", doc.Title)
	assert.Equal(t, "**new** body", doc.Text)

	empty := ""
	_, err = f.svc.UpdateThread(ctx, u.ID, created.PublicID, UpdateThreadInput{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	created := f.thread(t, "Hello", "World", u)
	reply, err := f.svc.AddReply(ctx, created.PublicID, "typo", u.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateReply(ctx, u.ID, reply.PublicID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "<p>fixed</p>", updated.Content)
	assert.Equal(t, "fixed", f.index.docs[search.ReplyDocID(created.PublicID, reply.PublicID)].Text)

	_, err = f.svc.UpdateReply(ctx, u.ID, "6f1c1c56-6f8d-4a52-8b0e-000000000000", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchThreads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	older := f.thread(t, "Older", "go", u)
	newer := f.thread(t, "Newer", "go", u)
	best := f.thread(t, "Best", "go go go", u)

	f.index.hits = []search.Hit{
		{ID: search.ThreadDocID(older.PublicID), ThreadID: older.PublicID, Score: 1},
		{ID: search.ReplyDocID(best.PublicID, "r"), ThreadID: best.PublicID, Score: 0.5},
		{ID: search.ThreadDocID(best.PublicID), ThreadID: best.PublicID, Score: 3},
		{ID: search.ThreadDocID(newer.PublicID), ThreadID: newer.PublicID, Score: 1},
		{ID: "thread:gone", ThreadID: "6f1c1c56-6f8d-4a52-8b0e-000000000000", Score: 9},
	}

	results, err := f.svc.SearchThreads(ctx, "go")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, best.PublicID, results[0].PublicID)
	assert.Equal(t, 3.0, results[0].Score)
	assert.Equal(t, newer.PublicID, results[1].PublicID)
	assert.Equal(t, older.PublicID, results[2].PublicID)
	assert.Equal(t, "u@example.com", results[0].Author.Name)
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newFixture(t)
	results, err := f.svc.SearchThreads(context.Background(), "  ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, f.index.queries, "blank queries never reach the index")
}

func TestFailingIndexIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	f.index.err = errors.New("connection refused")

	created := f.thread(t, "Still works", "body", u)
	_, err := f.svc.AddReply(ctx, created.PublicID, "reply", u.ID)
	require.NoError(t, err)

	results, err := f.svc.SearchThreads(ctx, "works")
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, f.svc.DeleteThread(ctx, u.ID, created.PublicID))
}

func TestNullIndexSearch(t *testing.T) {
	f := newFixture(t, func(d *ForumDeps) {
		d.Index = search.NewNullIndex()
		d.Indexer = nil
	})
	u := f.user(t, "u@example.com")
	f.thread(t, "Hello", "World", u)

	results, err := f.svc.SearchThreads(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchThreadsByTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	one := f.thread(t, "one", "x", u, "go")
	both := f.thread(t, "both", "x", u, "go", "sql")
	f.thread(t, "none", "x", u, "rust")

	results, err := f.svc.SearchThreadsByTags(ctx, []string{"go", "sql"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, both.PublicID, results[0].PublicID)
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, one.PublicID, results[1].PublicID)

	results, err = f.svc.SearchThreadsByTags(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListThreads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	first := f.thread(t, "first", "x", u)
	f.thread(t, "second", "x", u)
	third := f.thread(t, "third", "x", u, "news")
	_, err := f.svc.AddReply(ctx, third.PublicID, "r", u.ID)
	require.NoError(t, err)

	page, err := f.svc.ListThreads(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "third", page.Items[0].Title)
	assert.Equal(t, 1, page.Items[0].ReplyCount)
	assert.Equal(t, []string{"news"}, page.Items[0].Tags)

	page, err = f.svc.ListThreads(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.PublicID, page.Items[0].PublicID)

	page, err = f.svc.ListThreads(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 5, page.PageSize)
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u@example.com")
	a := f.thread(t, "a", "x", u)
	_, err := f.svc.AddReply(ctx, a.PublicID, "r", u.ID)
	require.NoError(t, err)
	f.thread(t, "b", "y", u)

	f.index.docs = make(map[string]search.Document)
	indexed, failed, err := f.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, indexed)
	assert.Zero(t, failed)
	assert.Len(t, f.index.ids(), 3)

	f.index.err = errors.New("down")
	indexed, failed, err = f.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Zero(t, indexed)
	assert.Equal(t, 3, failed)
}
