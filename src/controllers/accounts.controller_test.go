package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"vpass/src/events"
	"vpass/src/models"
	"vpass/src/store/memory"
	"vpass/src/types"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	published []events.Event
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.published = append(p.published, e)
	return p.err
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newController(t *testing.T, pub *capturePublisher) (*AccountsController, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	users := memory.NewDirectory(models.User{ID: 7, TenantID: 1, Name: "Ana", Email: "ana@acme.test", Role: types.ROLE_EMPLOYEE})
	c := NewAccountsController(users, pub, rdb, "https://app.test", 15*time.Minute)
	c.now = func() time.Time { return fixedNow }
	c.newToken = func() (string, error) { return "abc123", nil }
	return c, mock
}

func TestCreateUserPublishes(t *testing.T) {
	pub := &capturePublisher{}
	c, _ := newController(t, pub)
	actor := &types.Claims{UserID: 1, TenantID: 1, Role: types.ROLE_ADMIN}

	user, status, err := c.CreateUser(context.Background(), actor, types.CreateUserRequestBody{Name: "Bo", Email: "bo@acme.test", Role: types.ROLE_SECURITY})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, uint(1), user.TenantID)
	require.Len(t, pub.published, 1)
	created := pub.published[0].(events.UserCreated)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, "SECURITY", created.Role)

	_, status, err = c.CreateUser(context.Background(), actor, types.CreateUserRequestBody{Name: "Bo", Email: "bo@acme.test", Role: types.ROLE_SECURITY})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Len(t, pub.published, 1)
}

func TestCreateUserSurvivesPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: types.ErrPublishFailed}
	c, _ := newController(t, pub)
	_, status, err := c.CreateUser(context.Background(), &types.Claims{TenantID: 1}, types.CreateUserRequestBody{Name: "Cy", Email: "cy@acme.test", Role: types.ROLE_EMPLOYEE})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
}

func TestRequestPasswordReset(t *testing.T) {
	pub := &capturePublisher{}
	c, mock := newController(t, pub)
	mock.ExpectSet(ResetTokenKey("abc123"), uint(7), 15*time.Minute).SetVal("OK")

	status, err := c.RequestPasswordReset(context.Background(), "ana@acme.test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.published, 1)
	reset := pub.published[0].(events.PasswordResetRequested)
	assert.Equal(t, "https://app.test/reset-password?token=abc123", reset.ResetURL)
	assert.Equal(t, fixedNow.Add(15*time.Minute), reset.Expires)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	pub := &capturePublisher{}
	c, mock := newController(t, pub)

	status, err := c.RequestPasswordReset(context.Background(), "nobody@acme.test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Empty(t, pub.published)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPasswordResetStoreError(t *testing.T) {
	pub := &capturePublisher{}
	c, mock := newController(t, pub)
	mock.ExpectSet(ResetTokenKey("abc123"), uint(7), 15*time.Minute).SetErr(errors.New("connection refused"))

	status, err := c.RequestPasswordReset(context.Background(), "ana@acme.test")
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Empty(t, pub.published)
}

func TestRequestPasswordResetWithoutRedis(t *testing.T) {
	c := NewAccountsController(memory.NewDirectory(), &capturePublisher{}, nil, "", time.Minute)
	status, err := c.RequestPasswordReset(context.Background(), "ana@acme.test")
	assert.ErrorIs(t, err, ErrResetUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
