package agent

// systemPrompt declares the assistant's job and the tool protocol.
const systemPrompt = `You are a knowledgeable fitness coach with access to an archive of historical daily workouts.

Answer the user's question using the search tool to find relevant workouts. Each workout has a date, an optional name, the workout text, optional scaling guidance, and movement/equipment/type tags.

Guidelines:
- Search before answering questions about specific workouts, movements, or dates.
- Quote workout text faithfully; do not invent workouts that were not retrieved.
- When several workouts are relevant, mention their dates so the user can ask follow-ups.
- If the search returns nothing useful, say so honestly.
- Answer concisely and directly.`

// correctiveInstruction is injected after a failed step before the single
// retry.
const correctiveInstruction = `The previous step failed. Check the tool arguments: "query" is required, "mode" must be one of hybrid, lexical or vector, dates use YYYY-MM-DD. Either correct the tool call or answer directly from what you already know.`

// apologyAnswer is returned after two consecutive step failures. Never a
// raw error message.
const apologyAnswer = `I'm sorry, I ran into a problem while answering your question. Please try again in a moment.`

// retrievalUnavailableAnswer is returned when both search backends are down.
const retrievalUnavailableAnswer = `I can't search the workout archive right now. Please try again shortly.`

// emptyBestEffortAnswer is the budget-exhausted fallback when no
// observations were gathered.
const emptyBestEffortAnswer = `I wasn't able to finish researching your question within my limits. Could you ask it more specifically?`
