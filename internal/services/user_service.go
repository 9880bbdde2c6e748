package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/opensocial-be/internal/cache"
	"github.com/isdelr/opensocial-be/internal/media"
	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for new digests.
const PasswordCost = 10

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Uploader is the part of the media pipeline services depend on.
type Uploader interface {
	UploadSet(ctx context.Context, reqs map[string]media.Request) (map[string]media.Asset, error)
	Discard(ctx context.Context, assets ...media.Asset)
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  models.User
	Token string
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil fields are left as they are.
type ProfileUpdate struct {
	Bio          *string
	ProfileImage *media.File
	CoverImage   *media.File
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (AuthResult, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (models.User, error)
}

// UserService provides business logic for accounts and profiles.
type UserService struct {
	store  store.UserStore
	tokens TokenIssuer
	media  Uploader
	cache  cache.ProfileCache
	events EventServiceProvider
}

// NewUserService creates a new UserService. A nil profileCache disables caching.
func NewUserService(s store.UserStore, tokens TokenIssuer, uploader Uploader, profileCache cache.ProfileCache, events EventServiceProvider) *UserService {
	if profileCache == nil {
		profileCache = cache.Noop{}
	}
	return &UserService{store: s, tokens: tokens, media: uploader, cache: profileCache, events: events}
}

// Register creates a new account and signs the user in.
func (s *UserService) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return AuthResult{}, validation("Please add all fields")
	}

	for _, lookup := range []func() (models.User, error){
		func() (models.User, error) { return s.store.GetUserByEmail(ctx, email) },
		func() (models.User, error) { return s.store.GetUserByUsername(ctx, username) },
	} {
		_, err := lookup()
		if err == nil {
			return AuthResult{}, conflict("User already exists")
		}
		if !errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, fmt.Errorf("check existing user: %w", err)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Followers:    []string{},
		Following:    []string{},
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return AuthResult{}, conflict("User already exists")
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.events.Record(ctx, EventUserRegister, user.ID, "", fmt.Sprintf("%s joined", user.Username))
	return AuthResult{User: user.Public(), Token: token}, nil
}

// Authenticate verifies a user's credentials. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, unauthorized("Invalid credentials")
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user.Public(), Token: token}, nil
}

// GetUser retrieves a user by id without the password digest.
func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, notFound("User not found")
	}
	if err != nil {
		return models.User{}, err
	}
	return user.Public(), nil
}

// FindByUsername retrieves a public profile, serving it from the cache when possible.
func (s *UserService) FindByUsername(ctx context.Context, username string) (models.User, error) {
	if user, ok := s.cache.Get(ctx, username); ok {
		return user, nil
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, notFound("User not found")
	}
	if err != nil {
		return models.User{}, err
	}
	user = user.Public()
	s.cache.Set(ctx, user)
	return user, nil
}

// UpdateProfile uploads any new images, then writes the changed fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	reqs := map[string]media.Request{}
	if upd.ProfileImage != nil {
		reqs["profileImg"] = media.Request{Kind: media.KindImage, File: *upd.ProfileImage}
	}
	if upd.CoverImage != nil {
		reqs["coverImg"] = media.Request{Kind: media.KindImage, File: *upd.CoverImage}
	}

	var assets map[string]media.Asset
	if len(reqs) > 0 {
		if assets, err = s.media.UploadSet(ctx, reqs); err != nil {
			return models.User{}, uploadError(err)
		}
	}

	change := store.ProfileUpdate{Bio: upd.Bio}
	if a, ok := assets["profileImg"]; ok {
		change.ProfileImg = &a.URL
	}
	if a, ok := assets["coverImg"]; ok {
		change.CoverImg = &a.URL
	}
	if err := s.store.UpdateProfile(ctx, userID, change); err != nil {
		s.media.Discard(context.WithoutCancel(ctx), assetList(assets)...)
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, notFound("User not found")
		}
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}

	s.cache.Invalidate(ctx, user.Username)
	s.events.Record(ctx, EventUserUpdate, userID, "", "updated their profile")
	return s.GetUser(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func assetList(assets map[string]media.Asset) []media.Asset {
	out := make([]media.Asset, 0, len(assets))
	for _, a := range assets {
		out = append(out, a)
	}
	return out
}
