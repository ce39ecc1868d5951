package service

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/easycat/internal/database/repository"
)

// similarityThreshold is the minimum normalized description similarity for
// a "similar transaction" suggestion.
const similarityThreshold = 0.6

// Suggester finds pending transactions that look like one the user just
// categorized, so the same category can be applied in a batch.
type Suggester struct {
	Transactions *repository.TransactionRepo
}

// SimilarPending returns pending transactions whose description is close
// to target's, best match first is not guaranteed; order follows the store
// (oldest first).
func (s *Suggester) SimilarPending(ctx context.Context, target repository.Transaction) ([]repository.Transaction, error) {
	pending, err := s.Transactions.ByStatus(ctx, repository.StatusPending)
	if err != nil {
		return nil, err
	}
	var out []repository.Transaction
	for _, txn := range pending {
		if txn.ID == target.ID {
			continue
		}
		if Similarity(target.Description, txn.Description) >= similarityThreshold {
			out = append(out, txn)
		}
	}
	return out, nil
}

// Similarity is 1 minus the normalized levenshtein distance of the
// uppercased inputs; 1 means identical, 0 means nothing in common.
func Similarity(a, b string) float64 {
	ua, ub := strings.ToUpper(a), strings.ToUpper(b)
	if ua == ub {
		return 1
	}
	longest := len(ua)
	if len(ub) > longest {
		longest = len(ub)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(ua, ub)
	return 1 - float64(dist)/float64(longest)
}
