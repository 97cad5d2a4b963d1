package analysis

// charsPerToken is the estimation ratio used throughout the pipeline.
// Deliberately conservative for source code.
const charsPerToken = 3

// perFileOverhead covers the path header wrapped around each file in a
// prompt
const perFileOverhead = 20

// EstimateTokens estimates the token cost of a text
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text) / charsPerToken
}

// Batch is an ordered, bounded group of files consumed by exactly one
// discovery pass
type Batch struct {
	Index  int
	Files  []FileCandidate
	Tokens int
}

// BuildBatches partitions candidates into batches whose estimated cost fits
// the token ceiling. Deterministic first-fit in selection order: a file
// that would overflow the current batch starts the next one. Batch count is
// unbounded; large repositories simply produce more discovery passes.
func BuildBatches(candidates []FileCandidate, ceiling int) []Batch {
	if ceiling <= 0 {
		ceiling = 10_000
	}

	var batches []Batch
	current := Batch{Index: 0}

	for _, c := range candidates {
		cost := c.EstimatedTokens + perFileOverhead
		if current.Tokens+cost > ceiling && len(current.Files) > 0 {
			batches = append(batches, current)
			current = Batch{Index: len(batches)}
		}
		current.Files = append(current.Files, c)
		current.Tokens += cost
	}

	if len(current.Files) > 0 {
		batches = append(batches, current)
	}

	return batches
}
