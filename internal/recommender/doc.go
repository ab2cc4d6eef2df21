// Package recommender ranks stored investigations by similarity to a
// reference fingerprint (type, codebase, tag set).
//
// # Scoring
//
// Each candidate is scored 0-100 against the target:
//
//   - same investigation type: +40
//   - same codebase: +30
//   - tag overlap: up to +30, scaled by |intersection| / max(|target tags|,
//     |candidate tags|)
//
// A record compared against an identical fingerprint scores 100 when both
// carry tags, 70 when neither does. Candidates sharing nothing are dropped
// rather than reported with a zero score.
//
// # Basic Usage
//
//	rec := recommender.NewRecommender(store)
//
//	// Neighbors of a stored record (the record itself is excluded).
//	similar, err := rec.FindSimilar(ctx, "INV-042", 5)
//
//	// Matches for work that has not been run yet.
//	matches, err := rec.Recommend(ctx, recommender.Fingerprint{
//	    Type:     types.TypeSecurityAudit,
//	    Codebase: "github.com/acme/payments",
//	    Tags:     []string{"auth", "jwt"},
//	}, 5)
//
// # Ordering
//
// Results are sorted by score descending. Ties go to the more recently
// started investigation, then to the smaller id, so rankings are stable
// across calls.
package recommender
