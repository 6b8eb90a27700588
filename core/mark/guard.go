package mark

// Partition splits candidates into those to insert and those whose natural key is already taken,
// either by an existing record or by an earlier candidate of the same batch.
// Input order is preserved in both outputs.
//
// This is only the fast path: storage must still enforce uniqueness since existing may be stale.
func Partition(candidates []NewMark, existing []Mark) (accepted, skipped []NewMark) {
	seen := make(map[Key]struct{}, len(existing)+len(candidates))
	for _, m := range existing {
		seen[m.Key()] = struct{}{}
	}
	for _, c := range candidates {
		k := c.Key()
		if _, ok := seen[k]; ok {
			skipped = append(skipped, c)
			continue
		}
		seen[k] = struct{}{}
		accepted = append(accepted, c)
	}
	return accepted, skipped
}
