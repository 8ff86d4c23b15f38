package summary_engine

// Instruction prefixes sent verbatim to the text generation service.
const (
	ChunkPromptPrefix    = "Provide a brief and concise summary focusing on the key findings: "
	CondensePromptPrefix = "Make the summary more precise: "
)

func chunkPrompt(chunk string) string {
	return ChunkPromptPrefix + chunk
}

func condensePrompt(combined string) string {
	return CondensePromptPrefix + combined
}
