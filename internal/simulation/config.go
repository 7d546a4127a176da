package simulation

import "fmt"

// DefaultCountdownSeconds is the pre-session countdown shown before the
// first question.
const DefaultCountdownSeconds = 3

// Config is the immutable configuration of one simulated interview.
type Config struct {
	TotalQuestions         int      `json:"total_questions"`
	TotalTimeBudgetSeconds int      `json:"total_time_budget_seconds"`
	PerQuestionTimeSeconds int      `json:"per_question_time_seconds"`
	QuestionTexts          []string `json:"question_texts"`
	CountdownSeconds       int      `json:"countdown_seconds"`
}

// Validate reports whether the config can drive a session.
func (c Config) Validate() error {
	switch {
	case c.TotalQuestions < 1:
		return fmt.Errorf("%w: total_questions must be at least 1, got %d", ErrInvalidConfig, c.TotalQuestions)
	case c.TotalTimeBudgetSeconds <= 0:
		return fmt.Errorf("%w: total_time_budget_seconds must be positive, got %d", ErrInvalidConfig, c.TotalTimeBudgetSeconds)
	case c.PerQuestionTimeSeconds <= 0:
		return fmt.Errorf("%w: per_question_time_seconds must be positive, got %d", ErrInvalidConfig, c.PerQuestionTimeSeconds)
	case len(c.QuestionTexts) != c.TotalQuestions:
		return fmt.Errorf("%w: %d question texts for %d questions", ErrInvalidConfig, len(c.QuestionTexts), c.TotalQuestions)
	case c.CountdownSeconds < 0:
		return fmt.Errorf("%w: countdown_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}
