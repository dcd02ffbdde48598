package trends

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The Robot, Wins the Chess-Event!", DefaultStopWords)
	assert.Equal(t, []string{"robot", "wins", "chess", "event"}, tokens)
}

func TestTokenizeDeduplicatesAndKeepsUnicode(t *testing.T) {
	tokens := Tokenize("Café Straße café under_score 2024", DefaultStopWords)
	assert.Equal(t, []string{"café", "straße", "under_score", "2024"}, tokens)
}

func TestTokenizeOnlyStopWords(t *testing.T) {
	assert.Empty(t, Tokenize("Of the and, or!", DefaultStopWords))
	assert.Empty(t, Tokenize("", DefaultStopWords))
}

func TestAreTitlesSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"half of shorter shared", "Robot Wins Chess Event", "AI Robot Wins Award", true},
		{"one of four shared", "Robot Wins Chess Event", "Robot Loses Tennis Final", false},
		{"two token title rounds up to one", "Lakers Win", "Lakers Lose Big Game", true},
		{"three token title needs two", "Lakers beat Celtics", "Celtics fire coach Lakers", true},
		{"three token title with one shared", "Lakers beat Celtics", "Lakers fire coach today", false},
		{"case and punctuation ignored", "LAKERS: beat CELTICS!", "lakers beat celtics", true},
		{"stop words only never match", "The And Of", "The And Of", false},
		{"empty against title", "", "Lakers beat Celtics", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AreTitlesSimilar(tt.a, tt.b, DefaultStopWords))
			assert.Equal(t, tt.want, AreTitlesSimilar(tt.b, tt.a, DefaultStopWords), "similarity must be symmetric")
		})
	}
}

func TestAreTitlesSimilarCustomStopWords(t *testing.T) {
	stop := NewStopWords("Lakers")
	assert.False(t, AreTitlesSimilar("Lakers win", "Lakers lose", stop))
	assert.True(t, AreTitlesSimilar("Lakers win", "Lakers lose", DefaultStopWords))
}

func TestDefaultStopWordsKeepContentWords(t *testing.T) {
	for _, w := range []string{"ai", "robot", "chess", "wins", "event", "award", "new"} {
		assert.False(t, DefaultStopWords.Contains(w), w)
	}
	for _, w := range []string{"the", "a", "an", "of", "in", "and", "or", "but"} {
		assert.True(t, DefaultStopWords.Contains(w), w)
	}
}
