package service

import (
	"context"
	"strings"
	"time"

	"quickbasket/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecommendationService suggests products from the cart contents. It stands
// in for a remote engine and answers after a fixed delay.
type RecommendationService struct {
	delay time.Duration
	log   *zap.Logger
}

// NewRecommendationService creates the service with a simulated latency
func NewRecommendationService(delay time.Duration, log *zap.Logger) *RecommendationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecommendationService{delay: delay, log: log.Named("recommendations")}
}

var (
	wholeMilk = model.SuggestedProduct{
		ID:    "prod-milk-001",
		Name:  "Whole Milk (Pairs well with coffee!)",
		Price: decimal.RequireFromString("3.50"),
	}
	valueFlakes = model.SuggestedProduct{
		ID:   "prod-generic-002",
		Name: "QuickBasket Value Flakes (High-Rated)",
	}

	flakesSaving    = decimal.NewFromInt(2)
	flakesThreshold = decimal.NewFromInt(5)
)

// Recommend returns suggestions for items. It honours ctx cancellation
// while waiting out the simulated latency.
func (s *RecommendationService) Recommend(ctx context.Context, items []model.LineItem) (*model.Recommendations, error) {
	s.log.Debug("analyzing cart for smart suggestions", zap.Int("items", len(items)))

	rec := &model.Recommendations{
		MissingEssentials:  []model.SuggestedProduct{},
		SavingsSuggestions: []model.SavingsSuggestion{},
	}

	if containsName(items, "coffee") && !containsName(items, "milk") {
		rec.MissingEssentials = append(rec.MissingEssentials, wholeMilk)
	}

	// Only the first flakes line is considered.
	if item, ok := firstNamed(items, "branded flakes"); ok && item.Price.GreaterThan(flakesThreshold) {
		alt := valueFlakes
		alt.Price = item.Price.Sub(flakesSaving)
		rec.SavingsSuggestions = append(rec.SavingsSuggestions, model.SavingsSuggestion{
			OriginalItem: item.Name,
			Alternative:  alt,
			Saving:       flakesSaving,
		})
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return rec, nil
}

func containsName(items []model.LineItem, needle string) bool {
	_, ok := firstNamed(items, needle)
	return ok
}

// firstNamed returns the first item whose lower-cased name contains needle
func firstNamed(items []model.LineItem, needle string) (model.LineItem, bool) {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return item, true
		}
	}
	return model.LineItem{}, false
}
