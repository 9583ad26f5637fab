package engine

// SelectJump returns the highest strictly positive score. Equal scores resolve to
// the one that appears first in scores. Returns false when no score is positive.
func SelectJump(scores []Score) (Score, bool) {
	var best Score
	found := false
	for _, s := range scores {
		if s.Score <= 0 {
			continue
		}
		if !found || s.Score > best.Score {
			best = s
			found = true
		}
	}
	return best, found
}
