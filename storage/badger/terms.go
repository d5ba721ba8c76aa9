package badger

import "strings"

// Stop words excluded from the term postings index. Matches the filtering
// applied on the query side so coverage scores line up.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// indexTerms splits text into the unique lowercase terms stored in the
// postings index.
func indexTerms(text string) []string {
	words := strings.Fields(text)
	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned == "" || stopWords[cleaned] || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		terms = append(terms, cleaned)
	}

	return terms
}

// lexicalQuery is the parsed form of a lexical search query.
type lexicalQuery struct {
	terms    []string // bare terms scored by coverage
	phrases  []string // quoted phrases verified against record text
	excluded []string // NOT terms; a record containing one is dropped
}

func (q *lexicalQuery) empty() bool {
	return len(q.terms) == 0 && len(q.phrases) == 0
}

// parseLexicalQuery understands the quoted-phrase and boolean-operator
// syntax accepted by the index. AND/OR reduce to "should" scoring: a record
// matching more of the query ranks higher either way. NOT excludes.
func parseLexicalQuery(query string) *lexicalQuery {
	parsed := &lexicalQuery{}

	// Pull out quoted phrases first.
	rest := query
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '"')
		if end < 0 {
			break
		}
		phrase := strings.ToLower(strings.TrimSpace(rest[start+1 : start+1+end]))
		if phrase != "" {
			parsed.phrases = append(parsed.phrases, phrase)
		}
		rest = rest[:start] + " " + rest[start+2+end:]
	}

	negateNext := false
	for _, word := range strings.Fields(rest) {
		switch word {
		case "AND", "OR":
			continue
		case "NOT":
			negateNext = true
			continue
		}

		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned == "" || stopWords[cleaned] {
			negateNext = false
			continue
		}
		if negateNext {
			parsed.excluded = append(parsed.excluded, cleaned)
			negateNext = false
			continue
		}
		parsed.terms = append(parsed.terms, cleaned)
	}

	return parsed
}

// containsTerm checks a lowered document for a whole-word term match.
func containsTerm(document, term string) bool {
	idx := 0
	for {
		pos := strings.Index(document[idx:], term)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(term)
		beforeOK := start == 0 || !isWordByte(document[start-1])
		afterOK := end == len(document) || !isWordByte(document[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
