package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"vpass/src/events"
	"vpass/src/models"
	"vpass/src/store"
	"vpass/src/types"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var ErrResetUnavailable = errors.New("password reset is not configured")

type AccountsController struct {
	users     store.UserDirectory
	publisher events.Publisher
	tokens    redis.Cmdable
	appHost   string
	tokenTTL  time.Duration
	now       func() time.Time
	newToken  func() (string, error)
}

// NewAccountsController builds the accounts controller. tokens may be nil, in
// which case password resets are refused.
func NewAccountsController(users store.UserDirectory, publisher events.Publisher, tokens redis.Cmdable, appHost string, tokenTTL time.Duration) *AccountsController {
	return &AccountsController{
		users:     users,
		publisher: publisher,
		tokens:    tokens,
		appHost:   appHost,
		tokenTTL:  tokenTTL,
		now:       time.Now,
		newToken:  newResetToken,
	}
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func ResetTokenKey(token string) string {
	return fmt.Sprintf("password-reset:%s", token)
}

// CreateUser adds a user to the actor's tenant and announces it.
func (c *AccountsController) CreateUser(ctx context.Context, actor *types.Claims, body types.CreateUserRequestBody) (*models.User, int, error) {
	if actor == nil {
		return nil, http.StatusUnauthorized, types.ErrTenantAccessDenied
	}
	user := &models.User{
		TenantID: actor.TenantID,
		Name:     body.Name,
		Email:    body.Email,
		Role:     body.Role,
	}
	if err := c.users.CreateUser(ctx, user); err != nil {
		log.Printf("[accounts] Error creating user %s: %s", body.Email, err.Error())
		return nil, types.HTTPStatus(err), err
	}
	if err := c.publisher.Publish(ctx, events.UserCreated{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     string(user.Role),
	}); err != nil {
		// the user exists either way; the outbox retries the welcome mail
		log.Warnf("[accounts] Could not publish user created for %d: %s", user.ID, err.Error())
	}
	return user, http.StatusCreated, nil
}

// RequestPasswordReset stores a single-use token and publishes the reset
// link. Unknown addresses succeed silently.
func (c *AccountsController) RequestPasswordReset(ctx context.Context, email string) (int, error) {
	if c.tokens == nil {
		return http.StatusServiceUnavailable, ErrResetUnavailable
	}
	user, err := c.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			log.Printf("[accounts] Password reset requested for unknown address")
			return http.StatusAccepted, nil
		}
		return http.StatusInternalServerError, err
	}

	token, err := c.newToken()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if err := c.tokens.Set(ctx, ResetTokenKey(token), user.ID, c.tokenTTL).Err(); err != nil {
		log.Printf("[accounts] Could not save reset token: %s", err.Error())
		return http.StatusInternalServerError, err
	}

	if err := c.publisher.Publish(ctx, events.PasswordResetRequested{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		ResetURL: fmt.Sprintf("%s/reset-password?token=%s", c.appHost, url.QueryEscape(token)),
		Expires:  c.now().Add(c.tokenTTL),
	}); err != nil {
		log.Warnf("[accounts] Could not publish reset for %d: %s", user.ID, err.Error())
	}
	return http.StatusAccepted, nil
}
