package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/render"
	"forum_go/internal/repository"
	"forum_go/internal/search"
)

// ForumDeps collaborators of ForumService
type ForumDeps struct {
	Threads    repository.ThreadRepository
	Replies    repository.ReplyRepository
	Tags       repository.TagRepository
	ThreadTags repository.ThreadTagRepository
	Users      *UserService
	Index      search.Index
	Indexer    *Indexer
	Policy     Policy
	Renderer   *render.Renderer
	Config     *config.ForumConfig
}

// ForumService thread and reply lifecycle over the content store and search index
type ForumService struct {
	threads    repository.ThreadRepository
	replies    repository.ReplyRepository
	tags       repository.TagRepository
	threadTags repository.ThreadTagRepository
	users      *UserService
	index      search.Index
	indexer    *Indexer
	policy     Policy
	renderer   *render.Renderer
	cfg        config.ForumConfig
}

// NewForumService create ForumService; missing optional deps fall back to defaults
func NewForumService(d ForumDeps) *ForumService {
	s := &ForumService{
		threads:    d.Threads,
		replies:    d.Replies,
		tags:       d.Tags,
		threadTags: d.ThreadTags,
		users:      d.Users,
		index:      d.Index,
		indexer:    d.Indexer,
		policy:     d.Policy,
		renderer:   d.Renderer,
	}
	if s.index == nil {
		s.index = search.NewNullIndex()
	}
	if s.indexer == nil {
		s.indexer = NewIndexer(s.index, 0, 0)
	}
	if s.policy == nil {
		s.policy = AllowAllPolicy{}
	}
	if s.renderer == nil {
		s.renderer = render.Default()
	}
	if d.Config != nil {
		s.cfg = *d.Config
	}
	if s.cfg.DefaultPageSize <= 0 {
		s.cfg.DefaultPageSize = 25
	}
	if s.cfg.MaxPageSize < s.cfg.DefaultPageSize {
		s.cfg.MaxPageSize = s.cfg.DefaultPageSize
	}
	return s
}

// CreateThread create a thread, its body reply and tags, then index it.
// The title unique key is the real guard; the lookup only fails fast.
func (s *ForumService) CreateThread(ctx context.Context, in CreateThreadInput) (*ThreadView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Tags = normalizeTags(in.Tags)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	exist, err := s.threads.GetByTitle(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrDuplicateTitle
	}

	thread, body, err := s.threads.CreateWithBody(ctx, in.Title, in.AuthorID, in.Content)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrDuplicateTitle
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: author", ErrNotFound)
	case err != nil:
		return nil, err
	}

	tagNames := s.attachTags(ctx, thread, in.Tags)
	s.indexer.Index(threadDocument(thread, body))

	logger.Info("thread created",
		logger.String("thread", thread.PublicID),
		logger.Int("tags", len(tagNames)))

	authors, err := s.users.Authors(ctx, []int64{thread.CreatedBy})
	if err != nil {
		logger.Warn("load thread author", logger.ErrorField(err))
	}
	content := s.renderer.Markdown(body.Content)
	return &ThreadView{
		PublicID:   thread.PublicID,
		Title:      s.renderer.Title(thread.Title),
		Content:    &content,
		Author:     authors[thread.CreatedBy],
		ReplyCount: 0,
		Tags:       tagNames,
		CreatedAt:  thread.CreatedAt,
		ModifiedAt: thread.ModifiedAt,
	}, nil
}

// AddReply append a reply to a thread and index it
func (s *ForumService) AddReply(ctx context.Context, threadPublicID, content string, authorID int64) (*ReplyView, error) {
	if err := validateVar("content", content, "required"); err != nil {
		return nil, err
	}
	thread, err := s.getThread(ctx, threadPublicID)
	if err != nil {
		return nil, err
	}

	reply, err := s.replies.Create(ctx, thread.ID, authorID, content)
	if errors.Is(err, repository.ErrNotFound) {
		// thread or author vanished between lookup and insert
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.indexer.Index(replyDocument(thread, reply))

	authors, err := s.users.Authors(ctx, []int64{authorID})
	if err != nil {
		logger.Warn("load reply author", logger.ErrorField(err))
	}
	return s.replyView(thread, reply, authors), nil
}

// UpdateThread change title, body or tag set. Body edits overwrite the earliest reply.
func (s *ForumService) UpdateThread(ctx context.Context, actorID int64, threadPublicID string, in UpdateThreadInput) (*ThreadView, error) {
	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if err := validateVar("title", title, "required,max=100"); err != nil {
			return nil, err
		}
	}
	if in.Content != nil {
		if err := validateVar("content", *in.Content, "required"); err != nil {
			return nil, err
		}
	}
	var tags []string
	if in.Tags != nil {
		tags = normalizeTags(*in.Tags)
		if err := validateVar("tags", tags, "dive,required,max=25"); err != nil {
			return nil, err
		}
	}

	if err := s.authorizeThread(ctx, actorID, threadPublicID); err != nil {
		return nil, err
	}
	thread, err := s.getThread(ctx, threadPublicID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && title != thread.Title {
		err := s.threads.UpdateTitle(ctx, thread.ID, title)
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrDuplicateTitle
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case err != nil:
			return nil, err
		}
		thread.Title = title
	}

	if in.Content != nil {
		body, err := s.replies.GetFirst(ctx, thread.ID)
		if err != nil {
			return nil, err
		}
		if body == nil {
			// every reply was deleted; the new content becomes the body again
			_, err = s.replies.Create(ctx, thread.ID, actorID, *in.Content)
		} else {
			err = s.replies.UpdateContent(ctx, body.ID, *in.Content)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
	}

	if in.Tags != nil {
		if err := s.threadTags.DeleteByThread(ctx, thread.ID); err != nil {
			return nil, err
		}
		s.attachTags(ctx, thread, tags)
	}

	if in.Content != nil || in.Tags != nil {
		if err := s.threads.Touch(ctx, thread.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if err := s.refreshThreadDocument(ctx, thread); err != nil {
		return nil, err
	}
	return s.GetThread(ctx, thread.PublicID)
}

// UpdateReply overwrite a reply's content
func (s *ForumService) UpdateReply(ctx context.Context, actorID int64, replyPublicID, content string) (*ReplyView, error) {
	if err := validateVar("content", content, "required"); err != nil {
		return nil, err
	}
	if err := s.authorizeReply(ctx, actorID, replyPublicID); err != nil {
		return nil, err
	}
	reply, thread, err := s.getReply(ctx, replyPublicID)
	if err != nil {
		return nil, err
	}

	if err := s.replies.UpdateContent(ctx, reply.ID, content); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	reply.Content = content

	first, err := s.replies.GetFirst(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	if first != nil && first.ID == reply.ID {
		s.indexer.Index(threadDocument(thread, reply))
	} else {
		s.indexer.Index(replyDocument(thread, reply))
	}

	updated, err := s.replies.GetByPublicID(ctx, replyPublicID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	authors, err := s.users.Authors(ctx, []int64{updated.CreatedBy})
	if err != nil {
		logger.Warn("load reply author", logger.ErrorField(err))
	}
	return s.replyView(thread, updated, authors), nil
}

// DeleteReply remove a reply. Removing the earliest reply is allowed: the
// next one becomes the body, or the thread is left without content.
func (s *ForumService) DeleteReply(ctx context.Context, actorID int64, replyPublicID string) error {
	if err := s.authorizeReply(ctx, actorID, replyPublicID); err != nil {
		return err
	}
	reply, thread, err := s.getReply(ctx, replyPublicID)
	if err != nil {
		return err
	}

	first, err := s.replies.GetFirst(ctx, thread.ID)
	if err != nil {
		return err
	}
	if err := s.replies.Delete(ctx, reply.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.indexer.Remove(search.ReplyDocID(thread.PublicID, reply.PublicID))
	if first != nil && first.ID == reply.ID {
		if err := s.refreshThreadDocument(ctx, thread); err != nil {
			logger.Warn("refresh thread document", logger.String("thread", thread.PublicID), logger.ErrorField(err))
		}
	}
	logger.Info("reply deleted", logger.String("thread", thread.PublicID), logger.String("reply", reply.PublicID))
	return nil
}

// DeleteThread remove a thread with its search documents, tag links and replies.
// Steps run in order and each is idempotent, so a failed call can be retried.
func (s *ForumService) DeleteThread(ctx context.Context, actorID int64, threadPublicID string) error {
	if err := s.authorizeThread(ctx, actorID, threadPublicID); err != nil {
		return err
	}
	thread, err := s.getThread(ctx, threadPublicID)
	if err != nil {
		return err
	}

	replies, err := s.replies.ListByThread(ctx, thread.ID)
	if err != nil {
		return fmt.Errorf("list replies: %w", err)
	}
	s.indexer.Remove(search.ThreadDocID(thread.PublicID))
	for _, r := range replies {
		s.indexer.Remove(search.ReplyDocID(thread.PublicID, r.PublicID))
	}

	if err := s.threadTags.DeleteByThread(ctx, thread.ID); err != nil {
		return fmt.Errorf("delete thread tags: %w", err)
	}
	if err := s.replies.DeleteByThread(ctx, thread.ID); err != nil {
		return fmt.Errorf("delete replies: %w", err)
	}
	if err := s.threads.Delete(ctx, thread.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete thread: %w", err)
	}

	logger.Info("thread deleted", logger.String("thread", thread.PublicID), logger.Int("replies", len(replies)))
	return nil
}

// GetThread thread with rendered content and derived reply count
func (s *ForumService) GetThread(ctx context.Context, threadPublicID string) (*ThreadView, error) {
	thread, err := s.getThread(ctx, threadPublicID)
	if err != nil {
		return nil, err
	}

	body, err := s.replies.GetFirst(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	total, err := s.replies.CountByThread(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.GetByThread(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	authors, err := s.users.Authors(ctx, []int64{thread.CreatedBy})
	if err != nil {
		return nil, err
	}

	view := &ThreadView{
		PublicID:   thread.PublicID,
		Title:      s.renderer.Title(thread.Title),
		Author:     authors[thread.CreatedBy],
		ReplyCount: model.ReplyCount(total),
		Tags:       tagNames(tags),
		CreatedAt:  thread.CreatedAt,
		ModifiedAt: thread.ModifiedAt,
	}
	if body != nil {
		content := s.renderer.Markdown(body.Content)
		view.Content = &content
	}
	return view, nil
}

// GetReplies every reply in creation order; the first is the thread body
func (s *ForumService) GetReplies(ctx context.Context, threadPublicID string) ([]*ReplyView, error) {
	thread, err := s.getThread(ctx, threadPublicID)
	if err != nil {
		return nil, err
	}
	replies, err := s.replies.ListByThread(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(replies))
	for _, r := range replies {
		ids = append(ids, r.CreatedBy)
	}
	authors, err := s.users.Authors(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*ReplyView, 0, len(replies))
	for _, r := range replies {
		views = append(views, s.replyView(thread, r, authors))
	}
	return views, nil
}

// GetDiscussion replies after the body
func (s *ForumService) GetDiscussion(ctx context.Context, threadPublicID string) ([]*ReplyView, error) {
	replies, err := s.GetReplies(ctx, threadPublicID)
	if err != nil {
		return nil, err
	}
	if len(replies) <= 1 {
		return []*ReplyView{}, nil
	}
	return replies[1:], nil
}

// ListThreads page of threads, newest first. page starts at 1.
func (s *ForumService) ListThreads(ctx context.Context, page, pageSize int) (*ThreadPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	total, err := s.threads.Count(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := s.threads.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	items, err := s.summaries(ctx, threads)
	if err != nil {
		return nil, err
	}
	return &ThreadPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *ForumService) summaries(ctx context.Context, threads []*model.Thread) ([]ThreadSummary, error) {
	items := make([]ThreadSummary, 0, len(threads))
	if len(threads) == 0 {
		return items, nil
	}

	ids := make([]int64, 0, len(threads))
	authorIDs := make([]int64, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.ID)
		authorIDs = append(authorIDs, t.CreatedBy)
	}
	counts, err := s.replies.CountByThreads(ctx, ids)
	if err != nil {
		return nil, err
	}
	tagsByThread, err := s.tags.GetByThreads(ctx, ids)
	if err != nil {
		return nil, err
	}
	authors, err := s.users.Authors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, t := range threads {
		items = append(items, ThreadSummary{
			PublicID:   t.PublicID,
			Title:      s.renderer.Title(t.Title),
			Author:     authors[t.CreatedBy],
			ReplyCount: model.ReplyCount(counts[t.ID]),
			Tags:       tagNames(tagsByThread[t.ID]),
			CreatedAt:  t.CreatedAt,
			ModifiedAt: t.ModifiedAt,
		})
	}
	return items, nil
}

func (s *ForumService) authorizeThread(ctx context.Context, actorID int64, threadPublicID string) error {
	ok, err := s.policy.CanModifyThread(ctx, actorID, threadPublicID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *ForumService) authorizeReply(ctx context.Context, actorID int64, replyPublicID string) error {
	ok, err := s.policy.CanModifyReply(ctx, actorID, replyPublicID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *ForumService) getThread(ctx context.Context, publicID string) (*model.Thread, error) {
	thread, err := s.threads.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrNotFound
	}
	return thread, nil
}

func (s *ForumService) getReply(ctx context.Context, publicID string) (*model.Reply, *model.Thread, error) {
	reply, err := s.replies.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if reply == nil {
		return nil, nil, ErrNotFound
	}
	thread, err := s.threads.GetByID(ctx, reply.ThreadID)
	if err != nil {
		return nil, nil, err
	}
	if thread == nil {
		return nil, nil, ErrNotFound
	}
	return reply, thread, nil
}

// attachTags create-if-absent and link each tag. Failures are logged and the
// tag skipped; the thread itself is already committed.
func (s *ForumService) attachTags(ctx context.Context, thread *model.Thread, names []string) []string {
	attached := make([]string, 0, len(names))
	for _, name := range names {
		tag, err := s.tags.GetOrCreate(ctx, name)
		if err != nil {
			logger.Error("create tag", logger.String("tag", name), logger.ErrorField(err))
			continue
		}
		if err := s.threadTags.Create(ctx, thread.ID, tag.ID); err != nil {
			logger.Error("attach tag",
				logger.String("thread", thread.PublicID),
				logger.String("tag", name),
				logger.ErrorField(err))
			continue
		}
		attached = append(attached, tag.Name)
	}
	return attached
}

// refreshThreadDocument rebuild the title+body document from the store.
// The body's text lives only in the thread document, never in a reply document.
func (s *ForumService) refreshThreadDocument(ctx context.Context, thread *model.Thread) error {
	body, err := s.replies.GetFirst(ctx, thread.ID)
	if err != nil {
		return err
	}
	if body != nil {
		s.indexer.Remove(search.ReplyDocID(thread.PublicID, body.PublicID))
	}
	s.indexer.Index(threadDocument(thread, body))
	return nil
}

func (s *ForumService) replyView(thread *model.Thread, r *model.Reply, authors map[int64]Author) *ReplyView {
	return &ReplyView{
		PublicID:   r.PublicID,
		ThreadID:   thread.PublicID,
		Content:    s.renderer.Markdown(r.Content),
		Source:     r.Content,
		Author:     authors[r.CreatedBy],
		CreatedAt:  r.CreatedAt,
		ModifiedAt: r.ModifiedAt,
	}
}

// threadDocument title plus body; body may be nil once every reply is gone
func threadDocument(thread *model.Thread, body *model.Reply) search.Document {
	doc := search.Document{
		ID:        search.ThreadDocID(thread.PublicID),
		ThreadID:  thread.PublicID,
		Kind:      search.KindThread,
		Title:     thread.Title,
		CreatedAt: thread.CreatedAt,
	}
	if body != nil {
		doc.Text = body.Content
	}
	return doc
}

func replyDocument(thread *model.Thread, reply *model.Reply) search.Document {
	return search.Document{
		ID:        search.ReplyDocID(thread.PublicID, reply.PublicID),
		ThreadID:  thread.PublicID,
		Kind:      search.KindReply,
		Text:      reply.Content,
		CreatedAt: reply.CreatedAt,
	}
}

// normalizeTags trim, drop blanks and duplicates, keep first-seen order
func normalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func tagNames(tags []*model.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}
