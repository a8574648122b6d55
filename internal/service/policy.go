package service

import (
	"context"
	"fmt"

	"forum_go/internal/repository"
)

// Policy decides whether an actor may change a thread or reply.
// It runs before the target is looked up.
type Policy interface {
	CanModifyThread(ctx context.Context, actorID int64, threadPublicID string) (bool, error)
	CanModifyReply(ctx context.Context, actorID int64, replyPublicID string) (bool, error)
}

// Policy names accepted by forum.policy
const (
	PolicyPermissive = "permissive"
	PolicyOwner      = "owner"
)

// NewPolicy select a policy by name
func NewPolicy(name string, threads repository.ThreadRepository, replies repository.ReplyRepository) (Policy, error) {
	switch name {
	case "", PolicyPermissive:
		return AllowAllPolicy{}, nil
	case PolicyOwner:
		return &OwnerPolicy{threads: threads, replies: replies}, nil
	default:
		return nil, fmt.Errorf("unsupported policy %q", name)
	}
}

// AllowAllPolicy any authenticated user may modify anything
type AllowAllPolicy struct{}

func (AllowAllPolicy) CanModifyThread(context.Context, int64, string) (bool, error) { return true, nil }

func (AllowAllPolicy) CanModifyReply(context.Context, int64, string) (bool, error) { return true, nil }

// OwnerPolicy only the author may modify. Unknown targets are allowed through
// so the caller reports them as missing.
type OwnerPolicy struct {
	threads repository.ThreadRepository
	replies repository.ReplyRepository
}

// CanModifyThread author check
func (p *OwnerPolicy) CanModifyThread(ctx context.Context, actorID int64, threadPublicID string) (bool, error) {
	thread, err := p.threads.GetByPublicID(ctx, threadPublicID)
	if err != nil {
		return false, err
	}
	return thread == nil || thread.CreatedBy == actorID, nil
}

// CanModifyReply author check
func (p *OwnerPolicy) CanModifyReply(ctx context.Context, actorID int64, replyPublicID string) (bool, error) {
	reply, err := p.replies.GetByPublicID(ctx, replyPublicID)
	if err != nil {
		return false, err
	}
	return reply == nil || reply.CreatedBy == actorID, nil
}
