package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewardValidate(t *testing.T) {
	assert.NoError(t, Reward{Kind: REWARD_GOLD, Amount: 100}.Validate())
	assert.NoError(t, Reward{Kind: REWARD_CARD, CardID: "ember-imp"}.Validate())
	assert.NoError(t, Reward{Kind: REWARD_PACK, PackID: "any"}.Validate())
	assert.NoError(t, Reward{Kind: REWARD_TITLE, Title: "Centurion"}.Validate())

	assert.Error(t, Reward{Kind: REWARD_GOLD, Amount: 0}.Validate())
	assert.Error(t, Reward{Kind: REWARD_GEMS, Amount: -5}.Validate())
	assert.Error(t, Reward{Kind: REWARD_CARD}.Validate())
	assert.Error(t, Reward{Kind: REWARD_PACK}.Validate())
	assert.Error(t, Reward{Kind: "trophy"}.Validate())
}
