package enrich

import (
	"sort"
	"strings"
	"unicode"

	"github.com/quillon/newslens/internal/model"
)

// stopWords excluded from keyword extraction. Larger than the dedup list
// because body text carries far more function words than headlines.
var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true,
	"an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "before": true,
	"being": true, "between": true, "both": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true,
	"down": true, "during": true, "each": true, "few": true, "for": true,
	"from": true, "further": true, "had": true, "has": true, "have": true,
	"having": true, "he": true, "her": true, "here": true, "hers": true,
	"him": true, "his": true, "how": true, "i": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"just": true, "like": true, "me": true, "more": true, "most": true,
	"my": true, "new": true, "no": true, "nor": true, "not": true,
	"now": true, "of": true, "off": true, "on": true, "once": true,
	"only": true, "or": true, "other": true, "our": true, "out": true,
	"over": true, "own": true, "said": true, "same": true, "says": true,
	"she": true, "should": true, "so": true, "some": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "to": true, "too": true, "under": true,
	"until": true, "up": true, "very": true, "was": true, "we": true,
	"were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "who": true, "whom": true, "why": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

var positiveWords = map[string]bool{
	"acclaimed": true, "achievement": true, "advance": true, "award": true,
	"beat": true, "benefit": true, "best": true, "boost": true,
	"breakthrough": true, "celebrated": true, "champion": true,
	"donate": true, "donated": true, "gain": true, "gains": true,
	"growth": true, "help": true, "helped": true, "hero": true,
	"honored": true, "improve": true, "improved": true, "innovative": true,
	"praise": true, "praised": true, "progress": true, "promising": true,
	"record": true, "recover": true, "recovery": true, "rescue": true,
	"rescued": true, "rise": true, "rose": true, "succeed": true,
	"success": true, "successful": true, "support": true, "surge": true,
	"thrive": true, "triumph": true, "win": true, "winner": true,
	"wins": true, "won": true,
}

var negativeWords = map[string]bool{
	"accident": true, "accused": true, "arrest": true, "arrested": true,
	"attack": true, "blaze": true, "catastrophe": true, "charged": true,
	"collapse": true, "concern": true, "crash": true, "crisis": true,
	"criticism": true, "criticized": true, "damage": true, "danger": true,
	"dead": true, "death": true, "deaths": true, "decline": true,
	"destroyed": true, "destruction": true, "died": true, "disaster": true,
	"dispute": true, "drop": true, "evacuate": true, "evacuation": true,
	"evacuations": true, "fail": true, "failed": true, "failure": true,
	"fear": true, "fire": true, "flee": true, "fraud": true, "guilty": true,
	"injured": true, "injury": true, "kill": true, "killed": true,
	"lawsuit": true, "layoffs": true, "loss": true, "losses": true,
	"plummet": true, "protest": true, "scandal": true, "shortage": true,
	"shutdown": true, "slump": true, "struggle": true, "sued": true,
	"threat": true, "tragedy": true, "victim": true, "victims": true,
	"violence": true, "warn": true, "warned": true, "warning": true,
	"worst": true,
}

// orgMarkers identify organization-like entity spans.
var orgMarkers = map[string]bool{
	"Agency": true, "Bank": true, "Bureau": true, "College": true,
	"Committee": true, "Company": true, "Corp": true, "Corporation": true,
	"Council": true, "Court": true, "Department": true, "Group": true,
	"Inc": true, "Institute": true, "Ltd": true, "Ministry": true,
	"Office": true, "Party": true, "School": true, "Senate": true,
	"Union": true, "University": true,
}

// Analysis is the output of the deterministic NLP pass.
type Analysis struct {
	Entities  []model.Entity
	Keywords  []string
	Sentiment model.Sentiment
	Mentions  []string
}

// Analyze runs the local NLP pass over text: named-entity spans, top-K
// keywords by frequency, lexicon sentiment, and the sentences mentioning
// topic. No I/O; deterministic for a given input.
func Analyze(text, topic string, topKeywords int) Analysis {
	sentences := SplitSentences(text)
	mentions := findMentions(sentences, topic)

	// Sentiment reads the mention context when the topic appears in the
	// text, otherwise the whole text.
	sentimentSource := text
	if len(mentions) > 0 {
		sentimentSource = strings.Join(mentions, " ")
	}

	return Analysis{
		Entities:  extractEntities(sentences),
		Keywords:  extractKeywords(text, topKeywords),
		Sentiment: scoreSentiment(sentimentSource),
		Mentions:  mentions,
	}
}

// SplitSentences breaks text on terminal punctuation. Newlines also
// terminate sentences since extracted paragraphs arrive newline-joined.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '\n':
			flush()
		case '.', '!', '?':
			current.WriteRune(r)
			// Only end the sentence at whitespace or EOF, so "3.5" and
			// "U.S." survive.
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return sentences
}

func findMentions(sentences []string, topic string) []string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return nil
	}
	var mentions []string
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), topic) {
			mentions = append(mentions, s)
		}
	}
	return mentions
}

// extractEntities finds runs of capitalized tokens inside sentences,
// skipping each sentence's first word to avoid capitalization noise.
// Spans are labelled ORG when they carry an organization marker, PERSON
// for multi-word spans, MISC otherwise. Order of first appearance is
// preserved and duplicates are dropped.
func extractEntities(sentences []string) []model.Entity {
	var entities []model.Entity
	seen := make(map[string]bool)

	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		var span []string
		for i, w := range words {
			trimmed := strings.Trim(w, ".,;:!?\"'()[]")
			if i > 0 && isCapitalized(trimmed) && !stopWords[strings.ToLower(trimmed)] {
				span = append(span, trimmed)
				continue
			}
			if len(span) > 0 {
				addEntity(&entities, seen, span)
				span = nil
			}
		}
		if len(span) > 0 {
			addEntity(&entities, seen, span)
		}
	}
	return entities
}

func addEntity(entities *[]model.Entity, seen map[string]bool, span []string) {
	text := strings.Join(span, " ")
	if seen[text] {
		return
	}
	seen[text] = true

	label := "MISC"
	for _, w := range span {
		if orgMarkers[w] {
			label = "ORG"
			break
		}
	}
	if label == "MISC" && len(span) >= 2 {
		label = "PERSON"
	}
	*entities = append(*entities, model.Entity{Text: text, Label: label})
}

func isCapitalized(w string) bool {
	if w == "" {
		return false
	}
	r := []rune(w)[0]
	return unicode.IsUpper(r)
}

// extractKeywords returns the top-K non-stop-word tokens by frequency,
// ties broken lexicographically for determinism.
func extractKeywords(text string, k int) []string {
	if k <= 0 {
		k = 12
	}
	counts := make(map[string]int)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len(tok) < 3 || stopWords[tok] || isNumeric(tok) {
			continue
		}
		counts[tok]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > k {
		words = words[:k]
	}
	return words
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// scoreSentiment counts lexicon hits and buckets into three classes. A
// single-word margin is treated as neutral to keep the classifier from
// flapping on near-balanced text.
func scoreSentiment(text string) model.Sentiment {
	pos, neg := 0, 0
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, tok := range tokens {
		if positiveWords[tok] {
			pos++
		}
		if negativeWords[tok] {
			neg++
		}
	}

	switch {
	case pos > neg+1:
		return model.SentimentPositive
	case neg > pos+1:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}
