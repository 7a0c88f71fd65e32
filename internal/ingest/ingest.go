// Package ingest loads the processed exam data document that drives
// the Assigner: a roster of students with their per-question answers,
// plus the question catalog. This is the boundary adapter the
// specification treats as external (CSV ingestion lives upstream of
// this system), grounded on assignment_engine.py's load_data and the
// Processed Exam Data interface.
package ingest

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

// rawAnswer mirrors one entry of a student's answers map in the
// external JSON document.
type rawAnswer struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	IsEmpty   bool   `json:"is_empty"`
}

type rawStudent struct {
	Name    string               `json:"name"`
	Email   string               `json:"email"`
	Answers map[string]rawAnswer `json:"answers"`
}

type rawQuestion struct {
	Content  string `json:"content"`
	MaxScore int    `json:"max_score"`
}

type rawDocument struct {
	Students  map[string]rawStudent  `json:"students"`
	Questions map[string]rawQuestion `json:"questions"`
}

// Document is the decoded, structured form of the processed exam data:
// a roster of Papers plus the Question catalog, both sorted by id for
// deterministic downstream iteration.
type Document struct {
	Students  []models.Student
	Papers    []models.Paper
	Questions []models.Question
}

// LoadFile reads and decodes a processed-exam-data JSON document from
// path.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, apperr.Wrap(apperr.KindNotFound, "open processed exam data", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a processed-exam-data JSON document from r.
func Load(r io.Reader) (Document, error) {
	var raw rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Document{}, apperr.Wrap(apperr.KindValidation, "decode processed exam data", err)
	}

	studentIDs := make([]string, 0, len(raw.Students))
	for id := range raw.Students {
		studentIDs = append(studentIDs, id)
	}
	sort.Strings(studentIDs)

	students := make([]models.Student, 0, len(studentIDs))
	papers := make([]models.Paper, 0, len(studentIDs))
	for _, id := range studentIDs {
		rs := raw.Students[id]
		students = append(students, models.Student{ID: id, Name: rs.Name, Email: rs.Email})

		answers := make(map[string]models.Answer, len(rs.Answers))
		for qID, a := range rs.Answers {
			answers[qID] = models.Answer{Text: a.Text, WordCount: a.WordCount, CharCount: a.CharCount, IsEmpty: a.IsEmpty}
		}
		papers = append(papers, models.Paper{StudentID: id, Answers: answers})
	}

	questionIDs := make([]string, 0, len(raw.Questions))
	for id := range raw.Questions {
		questionIDs = append(questionIDs, id)
	}
	sort.Strings(questionIDs)

	questions := make([]models.Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		rq := raw.Questions[id]
		questions = append(questions, models.Question{ID: id, Content: rq.Content, MaxScore: rq.MaxScore})
	}

	return Document{Students: students, Papers: papers, Questions: questions}, nil
}

// StudentIDs returns the sorted roster ids, the input the Assigner
// consumes directly.
func (d Document) StudentIDs() []string {
	ids := make([]string, len(d.Students))
	for i, s := range d.Students {
		ids[i] = s.ID
	}
	return ids
}

// QuestionIDs returns the sorted question ids, used to populate a
// freshly minted Token's questions list.
func (d Document) QuestionIDs() []string {
	ids := make([]string, len(d.Questions))
	for i, q := range d.Questions {
		ids[i] = q.ID
	}
	return ids
}

// PaperByStudentID indexes papers for O(1) lookup by the evaluation
// view protocol.
func (d Document) PaperByStudentID() map[string]models.Paper {
	out := make(map[string]models.Paper, len(d.Papers))
	for _, p := range d.Papers {
		out[p.StudentID] = p
	}
	return out
}

// indexed is a Document with its lookup maps pre-built, satisfying
// evaluation.PaperProvider and evaluation.Questions without the server
// wiring having to build its own adapters.
type indexed struct {
	papers    map[string]models.Paper
	questions map[string]models.Question
}

// Index builds an indexed lookup view over d for use as the
// evaluation service's PaperProvider and Questions dependencies.
func (d Document) Index() *indexed {
	questions := make(map[string]models.Question, len(d.Questions))
	for _, q := range d.Questions {
		questions[q.ID] = q
	}
	return &indexed{papers: d.PaperByStudentID(), questions: questions}
}

// Paper implements evaluation.PaperProvider.
func (idx *indexed) Paper(studentID string) (models.Paper, bool) {
	p, ok := idx.papers[studentID]
	return p, ok
}

// Question implements evaluation.Questions.
func (idx *indexed) Question(id string) (models.Question, bool) {
	q, ok := idx.questions[id]
	return q, ok
}
