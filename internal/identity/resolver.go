package identity

import (
	"context"
	"errors"

	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/repo/postgres"
)

// ErrResolutionConflict means the create lost a duplicate race and the
// winning row still could not be read back.
var ErrResolutionConflict = errors.New("identity resolution conflict")

// Profile is a verified identity assertion from the external provider.
// Signature verification happened upstream; the resolver trusts it.
type Profile struct {
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}

// Keep this small interface so tests can fake the store easily.
type UserStore interface {
	GetByExternalID(ctx context.Context, externalID string) (user.User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
}

type Resolver struct {
	store UserStore
}

func NewResolver(store UserStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve finds or creates the local user for a verified external profile.
// Existing users are returned unchanged (no profile sync on login). The
// very first user ever created gets the admin role; everyone after gets
// user. The count-then-create pair is not atomic: two simultaneous first
// logins can both see an empty store, and the unique constraint on
// external_id/email decides the winner. The loser re-reads once.
func (r *Resolver) Resolve(ctx context.Context, p Profile) (user.User, error) {
	u, err := r.store.GetByExternalID(ctx, p.ExternalID)
	if err == nil {
		return u, nil
	}

	if !errors.Is(err, postgres.ErrUserNotFound) {
		return user.User{}, err
	}

	n, err := r.store.Count(ctx)
	if err != nil {
		return user.User{}, err
	}

	role := user.RoleUser
	if n == 0 {
		role = user.RoleAdmin
	}

	u, err = r.store.Create(ctx, user.NewUser{
		ExternalID: p.ExternalID,
		Email:      p.Email,
		Name:       p.Name,
		AvatarURL:  p.AvatarURL,
		Role:       role,
	})

	if err == nil {
		return u, nil
	}

	if !errors.Is(err, postgres.ErrDuplicateUser) {
		return user.User{}, err
	}

	// A concurrent request won the race; its row should now be visible.
	u, err = r.store.GetByExternalID(ctx, p.ExternalID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, ErrResolutionConflict
		}
		return user.User{}, err
	}
	return u, nil
}
