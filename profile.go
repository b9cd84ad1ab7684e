package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// ProfileChanges carries the mutable profile fields. Empty values are
// left untouched.
type ProfileChanges struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Profiles applies profile mutations and keeps the session cache in step:
// whatever the snapshot mirrors (name, email, role, avatar) is re-written
// on change so the gate and refresh flows see the update immediately.
type Profiles struct {
	users    UserStore
	sessions SessionStore
	assets   AssetStore
	logger   Logger
}

// NewProfiles creates the profile manager.
func NewProfiles(users UserStore, sessions SessionStore) *Profiles {
	return &Profiles{
		users:    users,
		sessions: sessions,
		logger:   defLogger{},
	}
}

// WithAssetStore enables avatar uploads.
func (p *Profiles) WithAssetStore(assets AssetStore) *Profiles {
	p.assets = assets
	return p
}

func (p *Profiles) WithLogger(logger Logger) *Profiles {
	p.logger = logger
	return p
}

// UpdateInfo changes name, email, and phone. An email change is guarded
// against collisions with another account.
func (p *Profiles) UpdateInfo(ctx context.Context, userID string, changes ProfileChanges) (*User, error) {
	user, err := p.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if changes.Email != "" && changes.Email != user.Email {
		if err := validation.Validate(changes.Email, is.Email); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email address").
				WithTextCode(TextCodeInvalidInput).
				WithCode(goerrors.CodeBadRequest)
		}

		existing, err := p.users.FindByEmail(ctx, changes.Email)
		if err != nil && !goerrors.IsNotFound(err) {
			return nil, wrapUpstream(err, "failed to check email availability")
		}
		if existing != nil {
			return nil, ErrUserAlreadyExists
		}
		user.Email = changes.Email
	}

	if changes.Name != "" {
		user.Name = changes.Name
	}

	if changes.Phone != "" {
		normalized, err := normalizePhone(changes.Phone)
		if err != nil {
			return nil, err
		}
		user.Phone = normalized
	}

	saved, err := p.users.Save(ctx, user)
	if err != nil {
		return nil, wrapUpstream(err, "failed to save profile")
	}

	if err := p.sessions.Set(ctx, saved.Snapshot()); err != nil {
		return nil, wrapUpstream(err, "failed to refresh session snapshot")
	}

	return saved, nil
}

// UpdatePassword rotates the password hash. Social-only accounts have no
// hash and cannot take this path.
func (p *Profiles) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) (*User, error) {
	if oldPassword == "" || newPassword == "" {
		return nil, goerrors.New("old and new password are required", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidInput).
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := p.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(oldPassword, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = hash

	saved, err := p.users.Save(ctx, user)
	if err != nil {
		return nil, wrapUpstream(err, "failed to save password")
	}

	return saved, nil
}

// UpdateAvatar replaces the stored avatar asset and re-caches the snapshot.
func (p *Profiles) UpdateAvatar(ctx context.Context, userID, data string) (*User, error) {
	if p.assets == nil {
		return nil, goerrors.New("no asset store configured", goerrors.CategoryInternal)
	}
	if data == "" {
		return nil, goerrors.New("avatar data is required", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidInput).
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := p.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.AvatarID != "" {
		if err := p.assets.Destroy(ctx, user.AvatarID); err != nil {
			// the old asset leaking is preferable to blocking the update
			p.logger.Warn("failed to destroy previous avatar", "asset_id", user.AvatarID, "error", err)
		}
	}

	asset, err := p.assets.Upload(ctx, data, UploadOptions{Folder: "avatars", Width: 150})
	if err != nil {
		return nil, wrapUpstream(err, "failed to upload avatar")
	}

	user.AvatarID = asset.ID
	user.AvatarURL = asset.URL

	saved, err := p.users.Save(ctx, user)
	if err != nil {
		return nil, wrapUpstream(err, "failed to save avatar")
	}

	if err := p.sessions.Set(ctx, saved.Snapshot()); err != nil {
		return nil, wrapUpstream(err, "failed to refresh session snapshot")
	}

	return saved, nil
}

func (p *Profiles) findUser(ctx context.Context, userID string) (*User, error) {
	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, wrapUpstream(err, "failed to retrieve user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func normalizePhone(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"phone": raw})
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
