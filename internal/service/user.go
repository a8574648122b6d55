package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/pkg/pool"
	"forum_go/internal/repository"
)

// UserService user registration and cached lookups.
// Users are never deleted and display names never change, so cached entries cannot go stale.
type UserService struct {
	repo  repository.UserRepository
	l1    *pool.BigCache
	l2    *redis.Client
	sf    singleflight.Group
	l2TTL time.Duration
}

// UserView public profile
type UserView struct {
	PublicID    string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Author byline attached to threads and replies
type Author struct {
	PublicID string `json:"id"`
	Name     string `json:"name"`
}

// cachedUser cache form; keeps the internal id the model hides from JSON
type cachedUser struct {
	ID          int64     `json:"id"`
	PublicID    string    `json:"public_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

type registerInput struct {
	Email       string `validate:"required,email,max=254"`
	DisplayName string `validate:"max=150"`
}

// NewUserService create user service; redisClient may be nil
func NewUserService(repo repository.UserRepository, redisClient *redis.Client, cacheCfg *config.CacheConfig) *UserService {
	ttl := time.Duration(cacheCfg.L2TTL) * time.Second
	l1, err := pool.NewBigCache(cacheCfg.L1Cap, ttl)
	if err != nil {
		logger.Warn("user L1 cache disabled", logger.ErrorField(err))
	}
	return &UserService{
		repo:  repo,
		l1:    l1,
		l2:    redisClient,
		l2TTL: ttl,
	}
}

// Register create a user; ErrConflict when the email or display name is taken.
// An empty display name defaults to the email.
func (s *UserService) Register(ctx context.Context, email, displayName string) (*model.User, error) {
	in := registerInput{Email: strings.TrimSpace(email), DisplayName: strings.TrimSpace(displayName)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, in.Email, in.DisplayName)
	if errors.Is(err, repository.ErrConflict) {
		return nil, s.registerConflict(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	s.store(ctx, user)
	logger.Info("user registered", logger.String("user", user.PublicID))
	return user, nil
}

// registerConflict name the unique key the insert collided with
func (s *UserService) registerConflict(ctx context.Context, in registerInput) error {
	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return fmt.Errorf("%w: email %s is already registered", ErrConflict, in.Email)
	}
	name := in.DisplayName
	if name == "" {
		name = in.Email
	}
	return fmt.Errorf("%w: display name %s is taken", ErrConflict, name)
}

// GetByPublicID resolve a public id, e.g. a token subject; ErrNotFound when unknown
func (s *UserService) GetByPublicID(ctx context.Context, publicID string) (*model.User, error) {
	key := "user:pub:" + publicID
	if user, ok := s.load(ctx, key); ok {
		return user, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		user, err := s.repo.GetByPublicID(ctx, publicID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrNotFound
		}
		s.store(ctx, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.User), nil
}

// View public profile by public id
func (s *UserService) View(ctx context.Context, publicID string) (*UserView, error) {
	user, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return &UserView{PublicID: user.PublicID, DisplayName: user.Name(), CreatedAt: user.CreatedAt}, nil
}

// Authors bylines keyed by internal user id; ids that no longer resolve are absent
func (s *UserService) Authors(ctx context.Context, ids []int64) (map[int64]Author, error) {
	result := make(map[int64]Author, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	missing := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := s.load(ctx, idKey(id)); ok {
			result[id] = Author{PublicID: user.PublicID, Name: user.Name()}
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	users, err := s.repo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = Author{PublicID: u.PublicID, Name: u.Name()}
		s.store(ctx, u)
	}
	return result, nil
}

func idKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

// load L1 then L2
func (s *UserService) load(ctx context.Context, key string) (*model.User, bool) {
	if c, ok := pool.GetJSON[cachedUser](s.l1, key); ok {
		return c.toModel(), true
	}
	if s.l2 == nil {
		return nil, false
	}
	data, err := s.l2.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug("user L2 read failed", logger.String("key", key), logger.ErrorField(err))
		}
		return nil, false
	}
	var c cachedUser
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false
	}
	if s.l1 != nil {
		_ = s.l1.Set(key, data)
	}
	return c.toModel(), true
}

// store write both keys to both layers
func (s *UserService) store(ctx context.Context, user *model.User) {
	c := cachedUser{
		ID:          user.ID,
		PublicID:    user.PublicID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
		ModifiedAt:  user.ModifiedAt,
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	for _, key := range []string{idKey(user.ID), "user:pub:" + user.PublicID} {
		if s.l1 != nil {
			_ = s.l1.Set(key, data)
		}
		if s.l2 != nil {
			if err := s.l2.Set(ctx, key, data, s.l2TTL).Err(); err != nil {
				logger.Debug("user L2 write failed", logger.String("key", key), logger.ErrorField(err))
			}
		}
	}
}

func (c cachedUser) toModel() *model.User {
	return &model.User{
		ID:          c.ID,
		PublicID:    c.PublicID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		CreatedAt:   c.CreatedAt,
		ModifiedAt:  c.ModifiedAt,
	}
}
