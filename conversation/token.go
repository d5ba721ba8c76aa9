package conversation

import "github.com/repforge/wodsearch/core"

const maxTokenLength = 128

// validToken reports whether a caller-supplied conversation token is usable
// as a storage key. Anything else gets replaced with a generated token
// rather than rejected.
func validToken(token string) bool {
	if token == "" || len(token) > maxTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		b := token[i]
		if b <= 0x20 || b >= 0x7f {
			return false
		}
	}
	return true
}

// estimateTokens approximates a message's model-token footprint: a quarter
// of the byte length plus a fixed per-message overhead.
func estimateTokens(msg core.ConversationMessage) int {
	return len(msg.Content)/4 + 10
}

// historyTokens sums the estimated footprint of a message sequence.
func historyTokens(msgs []core.ConversationMessage) int {
	total := 0
	for _, msg := range msgs {
		total += estimateTokens(msg)
	}
	return total
}

// trimHistory drops messages from the head until the sequence fits the
// message cap and token budget. The newest message always survives.
func trimHistory(msgs []core.ConversationMessage, maxMessages, tokenBudget int) []core.ConversationMessage {
	for len(msgs) > 1 && (len(msgs) > maxMessages || historyTokens(msgs) > tokenBudget) {
		msgs = msgs[1:]
	}
	return msgs
}
