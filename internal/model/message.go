package model

// Message is one chat entry.
//
// ID is the zero-based position of the message in the list, rendered as a
// string. User is the sender's email and Nickname their display name; both
// come from the client and are validated, not looked up.
type Message struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

// PostMessage is the input to posting a message. The chat service checks
// it before anything is stored.
type PostMessage struct {
	User     string `json:"user"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}
