package optimistic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/model"
)

func loaded(energy int) *Rewards {
	r := NewRewards()
	r.Load([]*model.Reward{{ID: "phone", Name: "Phone", EnergyCost: 1000, CurrentEnergy: energy}})
	return r
}

func energyOf(t *testing.T, r *Rewards, id string) int {
	t.Helper()
	reward, ok := r.Reward(id)
	require.True(t, ok)
	return reward.CurrentEnergy
}

func TestAddEnergy_AndRollback(t *testing.T) {
	r := loaded(120)

	r.OptimisticAddEnergy("phone", 10)
	assert.Equal(t, 130, energyOf(t, r, "phone"))

	r.RollbackAddEnergy("phone", 10)
	assert.Equal(t, 120, energyOf(t, r, "phone"))
}

func TestSubtractEnergy_ClampsAtZero(t *testing.T) {
	r := loaded(25)

	assert.Equal(t, 10, r.OptimisticSubtractEnergy("phone", 10))
	assert.Equal(t, 15, r.OptimisticSubtractEnergy("phone", 100))
	assert.Equal(t, 0, r.OptimisticSubtractEnergy("phone", 5))

	assert.Equal(t, 0, energyOf(t, r, "phone"))
}

func TestRollbackSubtract_RestoresAppliedAmount(t *testing.T) {
	r := loaded(5)

	applied := r.OptimisticSubtractEnergy("phone", 30)
	r.RollbackSubtractEnergy("phone", applied)

	assert.Equal(t, 5, energyOf(t, r, "phone"))
}

func TestRollbackAdd_ClampsAtZero(t *testing.T) {
	r := loaded(0)

	r.RollbackAddEnergy("phone", 10)

	assert.Equal(t, 0, energyOf(t, r, "phone"))
}

func TestUnknownRewardIsIgnored(t *testing.T) {
	r := NewRewards()

	r.OptimisticAddEnergy("missing", 10)
	assert.Equal(t, 0, r.OptimisticSubtractEnergy("missing", 10))

	_, ok := r.Reward("missing")
	assert.False(t, ok)
	assert.ErrorIs(t, r.MarkRedeemed("missing", time.Now()), ErrUnknownReward)
}

func TestRedeem_AndRollback(t *testing.T) {
	r := loaded(1000)
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, r.MarkRedeemed("phone", at))
	reward, _ := r.Reward("phone")
	assert.True(t, reward.IsRedeemed)
	require.NotNil(t, reward.RedeemedAt)
	assert.Equal(t, at, *reward.RedeemedAt)

	assert.ErrorIs(t, r.MarkRedeemed("phone", at), ErrAlreadyRedeemed)

	r.RollbackRedeem("phone")
	reward, _ = r.Reward("phone")
	assert.False(t, reward.IsRedeemed)
	assert.Nil(t, reward.RedeemedAt)
}

func TestLoadIfUnchanged(t *testing.T) {
	r := loaded(120)
	stored := []*model.Reward{{ID: "phone", Name: "Phone", EnergyCost: 1000, CurrentEnergy: 120}}

	version := r.Version()
	r.OptimisticAddEnergy("phone", 10)
	assert.False(t, r.LoadIfUnchanged(stored, version))
	assert.Equal(t, 130, energyOf(t, r, "phone"))

	version = r.Version()
	assert.True(t, r.LoadIfUnchanged(stored, version))
	assert.Equal(t, 120, energyOf(t, r, "phone"))
	assert.Equal(t, version, r.Version())

	require.NoError(t, r.MarkRedeemed("phone", time.Now()))
	assert.False(t, r.LoadIfUnchanged(stored, version))
}

func TestList_SortedByName(t *testing.T) {
	r := NewRewards()
	r.Load([]*model.Reward{
		{ID: "2", Name: "Subscription"},
		{ID: "1", Name: "Phone"},
	})

	list := r.List()

	require.Len(t, list, 2)
	assert.Equal(t, "Phone", list[0].Name)
	assert.Equal(t, "Subscription", list[1].Name)
}
