package style

// BuildStyleSummary reports, for each mark type appearing in the runs,
// whether the characters carrying it exceed 50% of the total character
// count. An exact 50/50 split reads as absent: no clear majority.
func BuildStyleSummary(runs []CapturedRun) map[string]bool {
	total := 0
	carrying := make(map[string]int)
	for _, r := range runs {
		total += r.CharCount
		seen := make(map[string]bool, len(r.Marks))
		for _, m := range r.Marks {
			if seen[m.Type] {
				continue
			}
			seen[m.Type] = true
			carrying[m.Type] += r.CharCount
		}
	}

	summary := make(map[string]bool, len(carrying))
	for markType, count := range carrying {
		summary[markType] = count*2 > total
	}
	return summary
}
