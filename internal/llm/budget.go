package llm

// Output token budget for a request, sized from a rough estimate of the input.
const (
	contextWindow   = 400_000
	modelMaxOutput  = 128_000
	desiredOutput   = 12_000
	safetyMargin    = 1_500
	minOutputTokens = 512
)

// ApproxTokens estimates tokens at four characters each.
func ApproxTokens(s string) int {
	return (len(s) + 3) / 4
}

// PickMaxOutput returns the max_output_tokens to request: the desired budget,
// capped by what the context window leaves after the input and by the model
// maximum, but never below the floor.
func PickMaxOutput(instructions, input string) int {
	in := ApproxTokens(instructions) + ApproxTokens(input)
	available := max(0, contextWindow-in-safetyMargin)
	return max(minOutputTokens, min(desiredOutput, available, modelMaxOutput))
}
