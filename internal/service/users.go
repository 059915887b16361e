package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/storage"
)

// UserService covers the administration of accounts.
type UserService struct {
	store  *repository.Store
	files  *FileService
	logger *slog.Logger
}

func NewUserService(store *repository.Store, files *FileService, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, files: files, logger: logger}
}

// List returns one page of users.  Admin only.
func (s *UserService) List(ctx context.Context, actor Actor, p repository.Page) ([]model.User, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.store.Users.List(ctx, p)
}

// Get returns a single profile.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, "user", id)
	}
	return u, nil
}

// UpdateUserInput carries the optional profile changes.
type UpdateUserInput struct {
	Username *string
	Email    *string
}

// Update changes username and/or email of id.  Owner or admin only.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput, actor Actor) (model.User, error) {
	fe := FieldErrors{}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
		validateUsername(fe, v)
	}
	if in.Email != nil {
		v := repository.NormalizeEmail(*in.Email)
		in.Email = &v
		validateEmail(fe, v)
	}
	if err := fe.Err(); err != nil {
		return model.User{}, err
	}

	var out model.User
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		u, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "user", id)
		}
		if err := Authorize(u.ID, actor); err != nil {
			return err
		}
		if in.Username != nil && *in.Username != u.Username {
			taken, err := tx.Users.UsernameTaken(ctx, *in.Username, u.ID)
			if err != nil {
				return err
			}
			if taken {
				return errConflict("username already exists")
			}
			u.Username = *in.Username
		}
		if in.Email != nil && *in.Email != u.Email {
			taken, err := tx.Users.EmailTaken(ctx, *in.Email, u.ID)
			if err != nil {
				return err
			}
			if taken {
				return errConflict("email already exists")
			}
			u.Email = *in.Email
		}
		if err := tx.Users.Update(ctx, &u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errConflict("username or email already exists")
			}
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// Delete removes a user.  Only admins may delete, never themselves and
// never the last admin.  Refresh tokens go first, then the user, in one
// transaction.
func (s *UserService) Delete(ctx context.Context, id string, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return errValidation("id", "you cannot delete your own account")
	}
	var avatar *string
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		u, err := tx.Users.GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "user", id)
		}
		if u.Role == model.RoleAdmin {
			n, err := tx.Users.CountByRole(ctx, model.RoleAdmin)
			if err != nil {
				return err
			}
			if n <= 1 {
				return errConflict("cannot delete the last admin")
			}
		}
		if err := tx.Tokens.DeleteForUser(ctx, u.ID); err != nil {
			return err
		}
		if err := tx.Users.Delete(ctx, u.ID); err != nil {
			return notFoundOr(err, "user", id)
		}
		avatar = u.AvatarID
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id, "actor_id", actor.UserID)
	if avatar != nil && s.files != nil {
		s.files.Remove(ctx, *avatar)
	}
	return nil
}

// UploadAvatar stores a new avatar image for id, replacing the old one.
func (s *UserService) UploadAvatar(ctx context.Context, id string, up Upload, actor Actor) (model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if err := Authorize(u.ID, actor); err != nil {
		return model.User{}, err
	}
	blobID, err := s.files.SaveImage(ctx, up)
	if err != nil {
		return model.User{}, err
	}

	old := u.AvatarID
	u.AvatarID = &blobID
	if err := s.store.Users.Update(ctx, &u); err != nil {
		s.files.Remove(ctx, blobID)
		return model.User{}, notFoundOr(err, "user", id)
	}
	if old != nil {
		s.files.Remove(ctx, *old)
	}
	return u, nil
}

// Avatar opens the avatar blob of id.
func (s *UserService) Avatar(ctx context.Context, id string) (*storage.Object, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.AvatarID == nil {
		return nil, errNotFound("avatar", id)
	}
	return s.files.Open(ctx, *u.AvatarID)
}

// Upload is an incoming file.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}
