package recommender

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/casefiledev/casefile-mcp/internal/storage"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// Scoring weights. The split is a deliberate contract: the kind of
// analysis matters most, the analyzed target next, and free-form tags
// least, scaling with overlap instead of all-or-nothing.
const (
	typeWeight     = 40.0
	codebaseWeight = 30.0
	tagWeight      = 30.0
)

// DefaultTopN is how many matches a ranking returns when the caller does
// not ask for a specific count
const DefaultTopN = 10

// Fingerprint is the comparison basis for similarity: type, codebase and
// tag set. FindSimilar builds one from a stored record; Recommend takes a
// caller-supplied one for work that has not run yet.
type Fingerprint struct {
	Type     types.InvestigationType `json:"type,omitempty"`
	Codebase string                  `json:"codebase,omitempty"`
	Tags     []string                `json:"tags,omitempty"`
}

// Recommender ranks stored investigations against a reference fingerprint
type Recommender struct {
	storage storage.Storage
}

// NewRecommender creates a new Recommender instance
func NewRecommender(storage storage.Storage) *Recommender {
	return &Recommender{storage: storage}
}

// FindSimilar scores every other record against the referenced one and
// returns the best topN matches, never the reference itself. A topN of 0
// selects DefaultTopN.
func (r *Recommender) FindSimilar(ctx context.Context, id string, topN int) ([]*types.ScoredRecord, error) {
	topN, err := normalizeTopN(topN)
	if err != nil {
		return nil, err
	}

	reference, err := r.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	target := Fingerprint{
		Type:     reference.Type,
		Codebase: reference.Codebase,
		Tags:     reference.Tags,
	}
	return r.rank(ctx, target, id, topN)
}

// Recommend ranks the registry against a planned investigation that has
// not been persisted. Nothing is excluded; a stored record identical to
// the fingerprint scores the maximum.
func (r *Recommender) Recommend(ctx context.Context, spec Fingerprint, topN int) ([]*types.ScoredRecord, error) {
	topN, err := normalizeTopN(topN)
	if err != nil {
		return nil, err
	}

	if spec.Type != "" && !spec.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown investigation type %q", types.ErrValidation, spec.Type)
	}

	return r.rank(ctx, spec, "", topN)
}

// rank scores all candidates, drops zero scores and the excluded id, and
// returns the topN ordered by score then recency
func (r *Recommender) rank(ctx context.Context, target Fingerprint, excludeID string, topN int) ([]*types.ScoredRecord, error) {
	target.Tags = normalizeTags(target.Tags)

	candidates, err := r.storage.GetAll(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	scored := make([]*types.ScoredRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if excludeID != "" && candidate.ID == excludeID {
			continue
		}

		score, reasons := scoreFingerprint(target, candidate)
		if score <= 0 {
			// Nothing in common is not a recommendation
			continue
		}

		scored = append(scored, &types.ScoredRecord{
			Record:  candidate,
			Score:   score,
			Reasons: reasons,
		})
	}

	sortScored(scored)

	if topN < len(scored) {
		scored = scored[:topN]
	}
	return scored, nil
}

// scoreFingerprint computes the weighted similarity of one candidate and
// the reasons each weight fired
func scoreFingerprint(target Fingerprint, candidate *types.InvestigationRecord) (float64, []string) {
	var score float64
	reasons := make([]string, 0, 3)

	if target.Type != "" && candidate.Type == target.Type {
		score += typeWeight
		reasons = append(reasons, "same type")
	}

	if target.Codebase != "" && candidate.Codebase == target.Codebase {
		score += codebaseWeight
		reasons = append(reasons, "same codebase")
	}

	// overlap = |intersection| / max(|target|, |candidate|); an empty set
	// on either side contributes 0, not NaN
	shared := intersectionSize(target.Tags, candidate.Tags)
	if shared > 0 {
		denom := max(len(target.Tags), len(candidate.Tags))
		score += tagWeight * float64(shared) / float64(denom)
		if shared == 1 {
			reasons = append(reasons, "1 shared tag")
		} else {
			reasons = append(reasons, fmt.Sprintf("%d shared tags", shared))
		}
	}

	return score, reasons
}

// sortScored orders by score descending, breaking ties by most recent
// start time and finally by id so rankings are deterministic
func sortScored(scored []*types.ScoredRecord) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].Record.StartTime.Equal(scored[j].Record.StartTime) {
			return scored[i].Record.StartTime.After(scored[j].Record.StartTime)
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})
}

func intersectionSize(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}

	shared := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			shared++
		}
	}
	return shared
}

// normalizeTags trims, dedupes and drops empties so overlap counts sets,
// not raw slices
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeTopN(topN int) (int, error) {
	if topN < 0 {
		return 0, fmt.Errorf("%w: topN must be non-negative", types.ErrValidation)
	}
	if topN == 0 {
		return DefaultTopN, nil
	}
	return topN, nil
}
