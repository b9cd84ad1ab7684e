package auth_test

import (
	"context"
	"sync"

	auth "github.com/goliatone/go-credentials"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// newTestUUID derives a stable id from a seed so assertions can predict it.
func newTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(seed))
}

// fakeUserStore is an in-memory UserStore used by the flow tests. It
// reports misses the way the bun repository does, as not-found errors.
type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
	byID    map[string]*auth.User
	failing error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: map[string]*auth.User{},
		byID:    map[string]*auth.User{},
	}
}

func notFoundErr(identifier string) error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithMetadata(map[string]any{"identifier": identifier})
}

func (s *fakeUserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing != nil {
		return nil, s.failing
	}

	user, ok := s.byEmail[email]
	if !ok {
		return nil, notFoundErr(email)
	}
	return user, nil
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing != nil {
		return nil, s.failing
	}

	user, ok := s.byID[id]
	if !ok {
		return nil, notFoundErr(id)
	}
	return user, nil
}

func (s *fakeUserStore) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing != nil {
		return nil, s.failing
	}

	if _, ok := s.byEmail[user.Email]; ok {
		return nil, goerrors.New("duplicate email", goerrors.CategoryConflict)
	}

	s.byEmail[user.Email] = user
	s.byID[user.ID.String()] = user

	return user, nil
}

func (s *fakeUserStore) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing != nil {
		return nil, s.failing
	}

	for email, existing := range s.byEmail {
		if existing.ID == user.ID && email != user.Email {
			delete(s.byEmail, email)
		}
	}

	s.byEmail[user.Email] = user
	s.byID[user.ID.String()] = user

	return user, nil
}

var _ auth.UserStore = (*fakeUserStore)(nil)

// trackingUserStore layers the LoginTracker capability on top of the
// fake store so tests can observe login timestamps.
type trackingUserStore struct {
	*fakeUserStore
	mu      sync.Mutex
	tracked []string
	fail    error
}

func (s *trackingUserStore) TrackLogin(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		return s.fail
	}

	s.tracked = append(s.tracked, user.ID.String())
	return nil
}

var _ auth.LoginTracker = (*trackingUserStore)(nil)

// captureSender records outbound mail instead of delivering it.
type captureSender struct {
	mu   sync.Mutex
	sent []auth.Message
	fail error
}

func (s *captureSender) Send(ctx context.Context, msg auth.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		return s.fail
	}

	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) last() (auth.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sent) == 0 {
		return auth.Message{}, false
	}
	return s.sent[len(s.sent)-1], true
}

var _ auth.Sender = (*captureSender)(nil)

// MockAssetStore implements auth.AssetStore
type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) Upload(ctx context.Context, data string, opts auth.UploadOptions) (*auth.Asset, error) {
	args := m.Called(ctx, data, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Asset), args.Error(1)
}

func (m *MockAssetStore) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ auth.AssetStore = (*MockAssetStore)(nil)

// MockSessionStore implements auth.SessionStore for failure injection;
// the flow tests use the real MemorySessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Get(ctx context.Context, userID string) (*auth.SessionSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.SessionSnapshot), args.Error(1)
}

func (m *MockSessionStore) Set(ctx context.Context, snapshot *auth.SessionSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSessionStore) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

var _ auth.SessionStore = (*MockSessionStore)(nil)

func testConfig() auth.SimpleConfig {
	return auth.SimpleConfig{
		AccessSigningKey:     "test-access-key",
		RefreshSigningKey:    "test-refresh-key",
		ActivationSigningKey: "test-activation-key",
		Issuer:               "test-issuer",
		Audience:             []string{"test:audience"},
	}
}
