package optimistic

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/templui/habitflywheel/internal/model"
)

var (
	ErrUnknownReward   = errors.New("reward not loaded")
	ErrAlreadyRedeemed = errors.New("reward already redeemed")
)

// Rewards mirrors reward energy and redemption state for one user.
type Rewards struct {
	mu      sync.Mutex
	rewards map[string]model.Reward
	version uint64
}

func NewRewards() *Rewards {
	return &Rewards{rewards: make(map[string]model.Reward)}
}

// Load replaces the projection with rewards read from the database.
func (r *Rewards) Load(rewards []*model.Reward) {
	next := make(map[string]model.Reward, len(rewards))
	for _, reward := range rewards {
		next[reward.ID] = *reward
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards = next
}

// Version counts local changes. It moves on every optimistic mutation and
// rollback but not on Load.
func (r *Rewards) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// LoadIfUnchanged replaces the projection like Load, unless a local change
// has been applied since version was read. It reports whether it loaded.
func (r *Rewards) LoadIfUnchanged(rewards []*model.Reward, version uint64) bool {
	next := make(map[string]model.Reward, len(rewards))
	for _, reward := range rewards {
		next[reward.ID] = *reward
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.version != version {
		return false
	}
	r.rewards = next
	return true
}

func (r *Rewards) Reward(rewardID string) (model.Reward, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reward, ok := r.rewards[rewardID]
	return reward, ok
}

// List returns the rewards ordered by name.
func (r *Rewards) List() []model.Reward {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Reward, 0, len(r.rewards))
	for _, reward := range r.rewards {
		out = append(out, reward)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Rewards) OptimisticAddEnergy(rewardID string, amount int) {
	r.apply(rewardID, amount)
}

func (r *Rewards) RollbackAddEnergy(rewardID string, amount int) {
	r.apply(rewardID, -amount)
}

// OptimisticSubtractEnergy lowers the reward's energy, clamped at zero, and
// returns how much was actually removed so a rollback restores exactly that.
func (r *Rewards) OptimisticSubtractEnergy(rewardID string, amount int) int {
	return -r.apply(rewardID, -amount)
}

func (r *Rewards) RollbackSubtractEnergy(rewardID string, amount int) {
	r.apply(rewardID, amount)
}

// MarkRedeemed flips the reward to redeemed at the given time.
func (r *Rewards) MarkRedeemed(rewardID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reward, ok := r.rewards[rewardID]
	if !ok {
		return ErrUnknownReward
	}
	if reward.IsRedeemed {
		return ErrAlreadyRedeemed
	}
	reward.IsRedeemed = true
	reward.RedeemedAt = &at
	r.rewards[rewardID] = reward
	r.version++
	return nil
}

func (r *Rewards) RollbackRedeem(rewardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reward, ok := r.rewards[rewardID]
	if !ok {
		return
	}
	reward.IsRedeemed = false
	reward.RedeemedAt = nil
	r.rewards[rewardID] = reward
	r.version++
}

// apply adds delta clamped at zero and returns the delta actually applied.
func (r *Rewards) apply(rewardID string, delta int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version++

	reward, ok := r.rewards[rewardID]
	if !ok {
		return 0
	}
	next := max(reward.CurrentEnergy+delta, 0)
	applied := next - reward.CurrentEnergy
	reward.CurrentEnergy = next
	r.rewards[rewardID] = reward
	return applied
}
