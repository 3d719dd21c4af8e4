package domain

import "github.com/shopspring/decimal"

type AIModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContextLength int    `json:"contextLength,omitempty"`
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Cost             decimal.Decimal
}

// Completion is one answer from the completion service.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}
