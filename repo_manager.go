package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
}

type mngr struct {
	db    *bun.DB
	users Users
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

// BunUserStore adapts the bun-backed Users repository to the narrow
// UserStore surface the credential flows consume.
type BunUserStore struct {
	users Users
}

func NewBunUserStore(users Users) *BunUserStore {
	return &BunUserStore{users: users}
}

func (s *BunUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *BunUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.users.GetByIdentifier(ctx, id)
}

func (s *BunUserStore) Create(ctx context.Context, user *User) (*User, error) {
	return s.users.Create(ctx, user)
}

func (s *BunUserStore) Save(ctx context.Context, user *User) (*User, error) {
	return s.users.Update(ctx, user, repository.UpdateByID(user.ID.String()))
}

// TrackLogin stamps loggedin_at without touching the rest of the record.
func (s *BunUserStore) TrackLogin(ctx context.Context, user *User) error {
	return s.users.TrackLogin(ctx, user)
}

var (
	_ UserStore    = (*BunUserStore)(nil)
	_ LoginTracker = (*BunUserStore)(nil)
)
