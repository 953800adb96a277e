package chat

// Reply is the JSON body an outgoing-webhook handler answers with. Ephemeral
// replies are shown only to the user who typed the command.
type Reply struct {
	Text         string   `json:"text"`
	Buttons      []Button `json:"buttons,omitempty"`
	ResponseType string   `json:"response_type"`
}

type Button struct {
	Action ButtonAction `json:"action"`
	Title  string       `json:"title"`
}

type ButtonAction struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

const responseEphemeral = "ephemeral"

func Ephemeral(text string) Reply {
	return Reply{Text: text, ResponseType: responseEphemeral}
}

func EphemeralLink(text, title, link string) Reply {
	return Reply{
		Text:         text,
		Buttons:      []Button{{Action: ButtonAction{Type: "url", Value: link}, Title: title}},
		ResponseType: responseEphemeral,
	}
}
