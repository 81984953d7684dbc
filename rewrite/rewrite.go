// Package rewrite streams a raw transcript through an LLM editing pass.
// The stream is lazy and single-use: deltas arrive as the backend
// produces them, and a terminal Done or Err delta ends it.
package rewrite

import "context"

type Delta struct {
	Text string // content increment, may be empty on terminal deltas
	Err  error  // terminal: stream failed, earlier deltas stand
	Done bool   // terminal: stream completed cleanly
}

type Rewriter interface {
	Name() string
	Rewrite(ctx context.Context, text string) (<-chan Delta, error)
}

const systemPrompt = "You are an expert editor for speech-to-text transcripts. " +
	"Your task is to transform the raw dictated text enclosed in <transcript> tags into clean, naturally typed text.\n\n" +
	"CORE RULES:\n" +
	"- Language & Tone: Keep the exact original language (do not translate). Preserve the speaker's original voice and tone. Do not over-formalize casual speech.\n" +
	"- Accuracy: Preserve all original meaning, facts, names, numbers, links, and technical terms. Do not add any new information.\n" +
	"- Cleanup: Remove filler words (um, uh, you know), stutters, redundancies, and false starts.\n" +
	"- Grammar & Correction: Fix punctuation, capitalization, sentence boundaries, and paragraph breaks. Correct obvious speech-to-text phonetic mishearings (homophones) based on context.\n\n" +
	"OUTPUT CONSTRAINTS:\n" +
	"- Return ONLY the final corrected text.\n" +
	"- Do NOT include greetings, explanations, or confirmation messages (e.g., 'Here is the text').\n" +
	"- Do NOT wrap the output in markdown code blocks (```) or quotes.\n" +
	"- If the input contains no meaningful words (only noise/fillers), return an empty string."

func userPrompt(raw string) string {
	return "<transcript>\n" + raw + "\n</transcript>"
}
