package domain

// Role identifies the author of a Message sent to the language model.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged entry of a prompt.
type Message struct {
	Role    Role
	Content string
}

// Outcome describes how a question was answered.
type Outcome string

const (
	OutcomeInvalid  Outcome = "invalid"
	OutcomeGreeting Outcome = "greeting"
	OutcomeAnswered Outcome = "answered"
	OutcomeFailed   Outcome = "failed"
)

// AnswerResult is the answer text plus diagnostics for API and CLI callers.
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Outcome Outcome  `json:"outcome"`
	Sources []string `json:"sources,omitempty"`
}
