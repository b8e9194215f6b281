package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/repository"
)

func TestUserService_UpdatePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := repository.NewUserRepository(f.db)
	auth := NewAuthService(users, testSecret, time.Hour)
	s := NewUserService(users, auth)

	user, err := auth.Register(ctx, "grace@example.com", "correct horse battery")
	require.NoError(t, err)

	err = s.UpdatePassword(ctx, user.ID, "wrong horse battery", "staple glue orbit")
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)

	err = s.UpdatePassword(ctx, user.ID, "correct horse battery", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, s.UpdatePassword(ctx, user.ID, "correct horse battery", "staple glue orbit"))

	_, err = auth.Login(ctx, "grace@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "grace@example.com", "staple glue orbit")
	assert.NoError(t, err)
}

func TestUserService_DeleteAccountCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := repository.NewUserRepository(f.db)
	s := NewUserService(users, NewAuthService(users, testSecret, time.Hour))

	phone := f.reward(t, "Phone", 1000, 120)
	read := f.habit(t, "Read", 10, phone)
	_, err := f.checkin().CheckIn(ctx, f.userID, read.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccount(ctx, f.userID))

	_, err = users.ByID(ctx, f.userID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = f.rewards.ByID(ctx, f.userID, phone.ID)
	assert.ErrorIs(t, err, repository.ErrRewardNotFound)
	assert.Zero(t, f.completionCount(t, read.ID))
	assert.Zero(t, f.total(t))

	assert.ErrorIs(t, s.DeleteAccount(ctx, f.userID), repository.ErrUserNotFound)
}
