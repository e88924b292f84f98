// Package discord adapts the chat transport to the turn pipeline: inbound
// messages and button presses become pipeline inputs, replies and menus
// become Discord messages with component rows.
package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/copperx/payout-bot/internal/bot"
	"github.com/copperx/payout-bot/internal/flow"
)

// Adapter bridges discordgo events and the bot pipeline. It also implements
// notify.Messenger so deposit notifications reuse the same outbound path.
type Adapter struct {
	session *discordgo.Session
	bot     *bot.Bot
}

func New(token string, b *bot.Bot) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	a := &Adapter{
		session: session,
		bot:     b,
	}

	session.AddHandler(a.onReady)
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	return a, nil
}

func (a *Adapter) Start() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Println("Discord bot is running")
	return nil
}

func (a *Adapter) Stop() error {
	return a.session.Close()
}

func (a *Adapter) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("%s is connected!", event.User.Username)
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	a.handle(m.Author.ID, m.ChannelID, flow.TextInput(m.Content))
}

func (a *Adapter) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	// Acknowledge immediately; the replies go out as regular messages.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		log.Printf("discord: interaction ack failed: %v", err)
	}

	userID := interactionUserID(i)
	if userID == "" {
		return
	}
	a.handle(userID, i.ChannelID, flow.ActionInput(i.MessageComponentData().CustomID))
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.User != nil {
		return i.User.ID
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	return ""
}

func (a *Adapter) handle(userID, channelID string, in flow.Input) {
	ctx := context.Background()
	replies, err := a.bot.HandleInput(ctx, userID, channelID, in)
	if err != nil {
		log.Printf("discord: turn for user %s failed: %v", userID, err)
	}
	for _, r := range replies {
		if err := a.sendReply(channelID, r); err != nil {
			log.Printf("discord: reply to channel %s failed: %v", channelID, err)
		}
	}
}

func (a *Adapter) sendReply(channelID string, r flow.Reply) error {
	msg := &discordgo.MessageSend{
		Content:    r.Text,
		Components: menuComponents(r.Menu),
	}
	_, err := a.session.ChannelMessageSendComplex(channelID, msg)
	return err
}

// menuComponents converts a reply menu to Discord button rows. Discord caps
// rows at five buttons and messages at five rows; menus here stay well under.
func menuComponents(menu *flow.Menu) []discordgo.MessageComponent {
	if menu == nil {
		return nil
	}
	var components []discordgo.MessageComponent
	for _, row := range menu.Rows {
		var buttons []discordgo.MessageComponent
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.SecondaryButton,
				CustomID: b.Action,
			})
		}
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components
}

// Send implements notify.Messenger: deposit notifications arrive in the chat
// the user last talked to the bot from.
func (a *Adapter) Send(ctx context.Context, destination, text string) error {
	_, err := a.session.ChannelMessageSend(destination, text)
	return err
}
