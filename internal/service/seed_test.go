package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeeder_SeedsEmptyAccountOnce(t *testing.T) {
	f := newFixture(t)
	s := NewSeeder(f.habits, f.rewards)
	ctx := context.Background()

	require.NoError(t, s.SeedDemoData(ctx, f.userID))
	require.NoError(t, s.SeedDemoData(ctx, f.userID))

	habits, err := f.habits.Habits(ctx, f.userID, true)
	require.NoError(t, err)
	rewards, err := f.rewards.Rewards(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, habits, 3)
	assert.Len(t, rewards, 2)

	byName := make(map[string]string)
	for _, r := range rewards {
		byName[r.ID] = r.Name
	}
	for _, h := range habits {
		require.True(t, h.IsBound())
		switch h.Name {
		case "Exercise":
			assert.Equal(t, "Subscription", byName[*h.BoundRewardID])
		default:
			assert.Equal(t, "Phone", byName[*h.BoundRewardID])
		}
	}
}

func TestSeeder_ReadToPhoneScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, NewSeeder(f.habits, f.rewards).SeedDemoData(ctx, f.userID))

	habits, err := f.habits.Habits(ctx, f.userID, false)
	require.NoError(t, err)
	var readID, phoneID string
	for _, h := range habits {
		if h.Name == "Read" {
			readID, phoneID = h.ID, *h.BoundRewardID
		}
	}
	require.NotEmpty(t, readID)
	assert.Equal(t, 120, f.rewardEnergy(t, phoneID))

	s := f.checkin()
	_, err = s.CheckIn(ctx, f.userID, readID)
	require.NoError(t, err)
	assert.Equal(t, 130, f.rewardEnergy(t, phoneID))

	_, err = s.UnCheckIn(ctx, f.userID, readID)
	require.NoError(t, err)
	assert.Equal(t, 120, f.rewardEnergy(t, phoneID))
}
