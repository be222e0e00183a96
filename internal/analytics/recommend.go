package analytics

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const (
	searchHistoryCollection = "user_search_history"

	searchHistoryDepth      = 5
	recommendationCandidate = 50
	recommendationCount     = 5
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Recommendations are products matching the words of a user's latest searches.
type Recommendations struct {
	UserID              int64      `json:"user_id"`
	Region              string     `json:"region"`
	KeywordsUsed        []string   `json:"keywords_used"`
	RecommendedProducts []Document `json:"recommended_products"`
}

// Recommendations suggests products of region for userID. The words of the
// user's five most recent searches are matched case-insensitively against
// product titles and descriptions.
func (s *Service) Recommendations(ctx context.Context, userID int64, region string) (*Recommendations, error) {
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	if err := validateID("user_id", userID); err != nil {
		return nil, err
	}

	history, err := s.documents.FindMany(ctx, searchHistoryCollection,
		map[string]any{"user_id": userID, "region": region},
		FindOptions{SortField: "date", SortDesc: true, Limit: searchHistoryDepth},
	)
	if err != nil {
		return nil, fmt.Errorf("search history of user %d: %w", userID, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no search history for user %d in region %q: %w", userID, region, ErrNotFound)
	}

	keywords := searchKeywords(history)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no keywords in search history of user %d: %w", userID, ErrNotFound)
	}

	products, err := s.documents.FindMany(ctx, productsCollection,
		keywordFilter(keywords, region),
		FindOptions{Limit: recommendationCandidate},
	)
	if err != nil {
		return nil, fmt.Errorf("recommendations for user %d: %w", userID, err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no products match the searches of user %d: %w", userID, ErrNotFound)
	}

	if len(products) > recommendationCount {
		products = products[:recommendationCount]
	}
	out := make([]Document, 0, len(products))
	for _, p := range products {
		out = append(out, NormalizeDecimals(p).(map[string]any))
	}

	return &Recommendations{
		UserID:              userID,
		Region:              region,
		KeywordsUsed:        keywords,
		RecommendedProducts: out,
	}, nil
}

// searchKeywords lowercases and splits the "search" field of each entry,
// keeping the first occurrence of every word.
func searchKeywords(history []map[string]any) []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range history {
		text, _ := entry["search"].(string)
		for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
			if seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func keywordFilter(keywords []string, region string) map[string]any {
	or := make([]any, 0, 2*len(keywords))
	for _, field := range []string{"title", "description"} {
		for _, w := range keywords {
			or = append(or, map[string]any{
				field: map[string]any{"$regex": regexp.QuoteMeta(w), "$options": "i"},
			})
		}
	}
	return map[string]any{"$or": or, "region": region}
}
