package birthday

import (
	"fmt"

	"github.com/scienta/skjera/internal/interaction"
	"github.com/scienta/skjera/internal/slack"
)

// Action values carried by the buttons the bot renders.
const (
	actionGenerate = "generate-message"
	actionSend     = "send"
)

const (
	headerText   = "It's a birthday!! :partying_face: :tada:"
	fallbackText = "It's a birthday!"
	snoozeText   = "_You snooze, you lose._"
)

func greetingLine(display string) string {
	return fmt.Sprintf("Happy birthday to %s :partying_face: :tada:", display)
}

// initialMessage renders the first form: greeting plus a "Generate message"
// button whose action_id carries the interaction token.
func initialMessage(display string, token interaction.Token) []slack.Block {
	return []slack.Block{
		slack.HeaderBlock(headerText),
		slack.SectionBlock(greetingLine(display)),
		slack.DividerBlock(),
		slack.ActionsBlock(
			slack.Button(token.String(), actionGenerate, "Generate message"),
		),
	}
}

// generatedMessage renders the suggestion form: the generated greeting text
// plus a "Send" button carrying a fresh token.
func generatedMessage(display, text string, token interaction.Token) []slack.Block {
	send := slack.Button(token.String(), actionSend, "Send")
	send.Style = "primary"

	return []slack.Block{
		slack.HeaderBlock(headerText),
		slack.SectionBlock(greetingLine(display)),
		slack.DividerBlock(),
		slack.SectionBlock(text),
		slack.DividerBlock(),
		slack.ActionsBlock(send),
	}
}

// sentMessage renders the terminal form after the greeting was sent.
func sentMessage(display, text string) []slack.Block {
	return []slack.Block{
		slack.HeaderBlock(headerText),
		slack.SectionBlock(greetingLine(display)),
		slack.DividerBlock(),
		slack.SectionBlock(text),
		slack.SectionBlock(":white_check_mark: Message sent"),
	}
}

// timedOutMessage renders the terminal form after nobody clicked in time.
// Any already-generated text stays visible.
func timedOutMessage(display, text string) []slack.Block {
	blocks := []slack.Block{
		slack.HeaderBlock(headerText),
		slack.SectionBlock(greetingLine(display)),
		slack.DividerBlock(),
	}
	if text != "" {
		blocks = append(blocks, slack.SectionBlock(text), slack.DividerBlock())
	}
	return append(blocks, slack.SectionBlock(snoozeText))
}
