package services

import (
	"fmt"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
	tele "gopkg.in/telebot.v3"

	"arcana/internal/models"
)

const (
	textStart = `⚔️ Welcome to Arcana! ⚔️

Battle with your deck, finish quests and climb the season pass for rewards.

🚀 Good luck out there!
`
)

type Bot struct {
	token string
}

func NewBot(token string) (*Bot, error) {
	return &Bot{token}, nil
}

func (bot *Bot) ValidateInitData(dataStr string) (*models.UserFromAuth, error) {
	if err := initdata.Validate(dataStr, bot.token, 0); err != nil {
		return nil, err
	}

	data, err := initdata.Parse(dataStr)
	if err != nil {
		return nil, err
	}

	return &models.UserFromAuth{
		ID:           data.User.ID,
		Username:     data.User.Username,
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		IsBot:        data.User.IsBot,
		LanguageCode: data.User.LanguageCode,
		PhotoURL:     data.User.PhotoURL,
	}, nil
}

func (bot *Bot) SendMsg(chatID int64, text string) error {
	pref := tele.Settings{
		Token:  bot.token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return err
	}

	_, err = b.Send(tele.ChatID(chatID), text)
	return err
}

func (bot *Bot) SendWelcomeMsg(chatID int64) error {
	return bot.SendMsg(chatID, textStart)
}

func (bot *Bot) SendTierUpMsg(chatID int64, tier int, tiersGained int) error {
	return bot.SendMsg(chatID, fmt.Sprintf("🏆 Tier up! You reached tier %d (+%d). Open the app to claim your rewards.", tier, tiersGained))
}

func (bot *Bot) SendAchievementMsg(chatID int64, name string) error {
	return bot.SendMsg(chatID, fmt.Sprintf("🎖 Achievement unlocked: %s", name))
}

func (bot *Bot) SendPremiumConfirmedMsg(chatID int64) error {
	return bot.SendMsg(chatID, "💎 Premium pass confirmed. Your premium track is now open!")
}
