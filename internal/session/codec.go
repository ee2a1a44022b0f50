package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/observability"
	"github.com/octrolabs/userhub/internal/repo/postgres"
)

// DefaultTTL is the maximum inactivity window before a session expires.
const DefaultTTL = 24 * time.Hour

type UserGetter interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

// Codec bridges a successful authentication and subsequent requests. The
// client-held handle is "<id>.<hmac>": the id keys the session store,
// the HMAC (server-side secret) stops handle forgery. Session state is
// only the user id; Resolve always re-fetches the user row, so it never
// serves a stale role.
type Codec struct {
	store  Store
	users  UserGetter
	secret []byte
	ttl    time.Duration
	prom   *observability.Prom
}

func NewCodec(store Store, users UserGetter, secret string, ttl time.Duration, prom *observability.Prom) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Codec{
		store:  store,
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		prom:   prom,
	}
}

func (c *Codec) sign(id string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Codec) split(handle string) (string, bool) {
	id, sig, ok := strings.Cut(handle, ".")
	if !ok || id == "" {
		return "", false
	}

	if !hmac.Equal([]byte(sig), []byte(c.sign(id))) {
		return "", false
	}
	return id, true
}

func (c *Codec) observe(op, result string) {
	if c.prom != nil {
		c.prom.SessionOps.WithLabelValues(op, result).Inc()
	}
}

// Establish creates session state for the user and returns the handle
// the client will carry in its cookie.
func (c *Codec) Establish(ctx context.Context, u user.User) (string, error) {
	id := uuid.NewString()

	if err := c.store.Set(ctx, id, u.ID, c.ttl); err != nil {
		c.observe("establish", "error")
		return "", err
	}

	c.observe("establish", "ok")
	return id + "." + c.sign(id), nil
}

// Resolve turns a handle back into the current user record, sliding the
// session's expiry from now. Returns ErrNoSession when the handle is
// forged, expired, destroyed, or references a deleted user.
func (c *Codec) Resolve(ctx context.Context, handle string) (user.User, error) {
	id, ok := c.split(handle)
	if !ok {
		c.observe("resolve", "invalid")
		return user.User{}, ErrNoSession
	}

	userID, found, err := c.store.Get(ctx, id)
	if err != nil {
		c.observe("resolve", "error")
		return user.User{}, err
	}

	if !found {
		c.observe("resolve", "expired")
		return user.User{}, ErrNoSession
	}

	if err := c.store.Refresh(ctx, id, c.ttl); err != nil {
		c.observe("resolve", "error")
		return user.User{}, err
	}

	u, err := c.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// The user row was deleted after the session was cut.
			c.observe("resolve", "orphaned")
			return user.User{}, ErrNoSession
		}
		c.observe("resolve", "error")
		return user.User{}, err
	}

	c.observe("resolve", "ok")
	return u, nil
}

// Destroy removes session state. Destroying an absent handle is not an
// error.
func (c *Codec) Destroy(ctx context.Context, handle string) error {
	id, ok := c.split(handle)
	if !ok {
		return nil
	}

	if err := c.store.Delete(ctx, id); err != nil {
		c.observe("destroy", "error")
		return err
	}

	c.observe("destroy", "ok")
	return nil
}
