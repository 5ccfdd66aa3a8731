package model

import "github.com/shopspring/decimal"

// SuggestedProduct is a product the recommendation rules propose
type SuggestedProduct struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// SavingsSuggestion proposes a cheaper alternative to a cart item
type SavingsSuggestion struct {
	OriginalItem string           `json:"original_item"`
	Alternative  SuggestedProduct `json:"suggested_alternative"`
	Saving       decimal.Decimal  `json:"saving"`
}

// Recommendations is the response of the recommendation service
type Recommendations struct {
	MissingEssentials  []SuggestedProduct  `json:"missing_essentials"`
	SavingsSuggestions []SavingsSuggestion `json:"savings_suggestions"`
}
