package summarize

// systemPrompt shapes every summarization call. The same instruction set is
// used for chunk passes, the consolidation pass, and the short-transcript
// fast path; the user message carries the output shape for each pass.
const systemPrompt = `You are an expert podcast editor condensing transcript text for a listener
deciding whether to play the episode. Preserve concrete facts, names, and
stated conclusions. Do not invent content that is not in the text. Do not
mention that you are summarizing or refer to "the transcript". Follow the
output shape requested in each message exactly, with no introductions,
headings, or meta-commentary.`

// chunkPreamble introduces one slice of a longer transcript. Chunk passes
// return raw bullet material that the final pass merges.
const chunkPreamble = `Summarize this portion of an episode transcript as 5 to 8 concise bullet
points unique to this portion. Output only the bullet points.

`

// finalPreamble produces the delivered summary shape. It is shared verbatim
// by the short-transcript fast path and the consolidation pass so output
// format is identical regardless of which path ran.
const finalPreamble = `Condense the following episode material into:
1. 5 to 10 top-level bullet points covering the most important facts, names,
   and conclusions, merging and deduplicating overlapping points.
2. A narrative recap of 2 to 3 sentences after the bullets.
Output only the bullet points followed by the recap.

`
