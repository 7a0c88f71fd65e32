package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
	"students": {
		"B": {"name": "Bob", "email": "bob@example.com", "answers": {"Q1": {"text": "b1", "word_count": 1, "char_count": 2, "is_empty": false}}},
		"A": {"name": "Alice", "email": "alice@example.com", "answers": {"Q1": {"text": "a1", "word_count": 1, "char_count": 2, "is_empty": false}}}
	},
	"questions": {
		"Q1": {"content": "Explain X", "max_score": 20}
	}
}`

func TestLoad_SortsStudentsAndQuestions(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, doc.StudentIDs())
	assert.Equal(t, []string{"Q1"}, doc.QuestionIDs())
	assert.Equal(t, 20, doc.Questions[0].MaxScore)

	byID := doc.PaperByStudentID()
	assert.Equal(t, "a1", byID["A"].Answers["Q1"].Text)
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`{not json`))
	require.Error(t, err)
}
