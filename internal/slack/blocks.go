package slack

// Block Kit subset used by the bot: header, mrkdwn section, divider and a
// button row.

// TextObject is a Block Kit text composition object.
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// PlainText builds a plain_text object.
func PlainText(text string) *TextObject {
	return &TextObject{Type: "plain_text", Text: text, Emoji: true}
}

// Markdown builds an mrkdwn object.
func Markdown(text string) *TextObject {
	return &TextObject{Type: "mrkdwn", Text: text}
}

// Block is a Block Kit layout block.
type Block struct {
	Type     string          `json:"type"`
	Text     *TextObject     `json:"text,omitempty"`
	Elements []ButtonElement `json:"elements,omitempty"`
}

// ButtonElement is a Block Kit button.
type ButtonElement struct {
	Type     string      `json:"type"`
	Text     *TextObject `json:"text"`
	ActionID string      `json:"action_id"`
	Value    string      `json:"value,omitempty"`
	Style    string      `json:"style,omitempty"`
}

// HeaderBlock builds a header block.
func HeaderBlock(text string) Block {
	return Block{Type: "header", Text: PlainText(text)}
}

// SectionBlock builds a section block with mrkdwn text.
func SectionBlock(markdown string) Block {
	return Block{Type: "section", Text: Markdown(markdown)}
}

// DividerBlock builds a divider block.
func DividerBlock() Block {
	return Block{Type: "divider"}
}

// ActionsBlock builds an actions block holding the given buttons.
func ActionsBlock(buttons ...ButtonElement) Block {
	return Block{Type: "actions", Elements: buttons}
}

// Button builds a button whose action_id carries the interaction token.
func Button(actionID, value, label string) ButtonElement {
	return ButtonElement{
		Type:     "button",
		Text:     PlainText(label),
		ActionID: actionID,
		Value:    value,
	}
}

// Mention renders a user mention in mrkdwn.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
