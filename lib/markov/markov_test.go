package markov

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainGraph(t *testing.T) {
	chain, err := New("The cat and the dog. The cat!")
	require.NoError(t, err)

	require.Equal(t, 2, chain.Count("the", "cat"))
	require.Equal(t, 1, chain.Count("the", "dog"))
	require.Equal(t, 1, chain.Count("dog", "the"))
	require.Equal(t, 0, chain.Count("cat", "the"))

	_, err = New("12 34 !!")
	require.ErrorIs(t, err, ErrNoTokens)

	_, err = New("lonely")
	require.ErrorIs(t, err, ErrNoTransitions)
}

func dummy(rnd *rand.Rand, words int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	out := make([]string, words)
	for i := range out {
		word := make([]byte, 5+rnd.IntN(6))
		for j := range word {
			word[j] = letters[rnd.IntN(len(letters))]
		}
		out[i] = string(word)
	}
	return strings.Join(out, " ")
}

func TestGenerate(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	chain, err := NewWithRand(dummy(rnd, 1000), rnd)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		distance := 20 + rnd.IntN(10)
		text := chain.Generate(distance)
		words := strings.Split(text, " ")
		require.NotEmpty(t, text)
		require.LessOrEqual(t, len(words), distance)
		for _, word := range words {
			require.Equal(t, strings.ToLower(word), word)
		}
	}

	require.Equal(t, "", chain.Generate(0))
}

func TestWalkFollowsEdges(t *testing.T) {
	chain, err := New("a b a b a b")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "b", "a"}, chain.Walk(4, "a"))
	require.Empty(t, chain.Walk(3, "missing"))
}
