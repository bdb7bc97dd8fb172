package markov

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
)

var ErrNoTokens = errors.New("markov: text has no words")
var ErrNoTransitions = errors.New("markov: text has no word transitions")

var tokenPattern = regexp.MustCompile(`[a-zA-Z]+`)

// Chain is a bigram word graph, edges are weighted by how often one word
// follows another.
type Chain struct {
	graph map[string]map[string]int
	nodes []string
	rnd   *rand.Rand
}

// New builds the graph of text, words are lowercased.
func New(text string) (*Chain, error) {
	return NewWithRand(text, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func NewWithRand(text string, rnd *rand.Rand) (*Chain, error) {
	tokens := tokenPattern.FindAllString(text, -1)
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	graph := map[string]map[string]int{}
	last := strings.ToLower(tokens[0])
	for _, token := range tokens[1:] {
		word := strings.ToLower(token)
		next, ok := graph[last]
		if !ok {
			next = map[string]int{}
			graph[last] = next
		}
		next[word]++
		last = word
	}
	if len(graph) == 0 {
		return nil, ErrNoTransitions
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)

	return &Chain{graph: graph, nodes: nodes, rnd: rnd}, nil
}

// Count returns how often next follows word.
func (c *Chain) Count(word, next string) int {
	return c.graph[word][next]
}

func (c *Chain) pick(node string) (string, bool) {
	edges := c.graph[node]
	if len(edges) == 0 {
		return "", false
	}
	choices := make([]string, 0, len(edges))
	total := 0
	for word, count := range edges {
		choices = append(choices, word)
		total += count
	}
	slices.Sort(choices)

	target := c.rnd.IntN(total)
	for _, word := range choices {
		target -= edges[word]
		if target < 0 {
			return word, true
		}
	}
	return choices[len(choices)-1], true
}

// Walk does a weighted random walk of at most distance steps, an empty
// start picks a random node.
func (c *Chain) Walk(distance int, start string) []string {
	if start == "" {
		start = c.nodes[c.rnd.IntN(len(c.nodes))]
	}
	words := []string{}
	node := start
	for i := 0; i < distance; i++ {
		next, ok := c.pick(node)
		if !ok {
			break
		}
		words = append(words, next)
		node = next
	}
	return words
}

// Generate walks from random start nodes until a walk yields words.
func (c *Chain) Generate(distance int) string {
	if distance <= 0 {
		return ""
	}
	for {
		words := c.Walk(distance, "")
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
}
