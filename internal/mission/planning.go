package mission

import (
	"time"

	"github.com/missionkit/missionctl/pkg/models"
)

// DefaultPlanningQuestions is the fixed clarification set asked for every new
// task before it can leave planning. Wording is configuration, not logic.
var DefaultPlanningQuestions = []string{
	"What is the primary goal of this task?",
	"Who is the target audience or end user?",
	"What does a successful outcome look like?",
	"Are there constraints, dependencies, or deadlines to respect?",
	"What tools, data, or access will the agent need?",
}

// Planning drives the clarification dialogue for one task. It holds only the
// task id and the Q&A list; restarting planning for a task begins fresh and
// overwrites any previous answers. The current question is tracked by stable
// index, so duplicate question wording cannot misroute an answer.
type Planning struct {
	taskID string
	qa     []models.QAPair
	next   int
	clock  func() time.Time
}

// StartPlanning builds a fresh workflow over the given question set
// (DefaultPlanningQuestions when questions is nil).
func StartPlanning(taskID string, questions []string) *Planning {
	if questions == nil {
		questions = DefaultPlanningQuestions
	}
	qa := make([]models.QAPair, len(questions))
	for i, q := range questions {
		qa[i] = models.QAPair{QAID: models.NewID(), Question: q}
	}
	return &Planning{taskID: taskID, qa: qa, clock: time.Now}
}

// TaskID returns the task this workflow belongs to.
func (p *Planning) TaskID() string { return p.taskID }

// Current returns the question awaiting an answer, if any.
func (p *Planning) Current() (models.QAPair, bool) {
	if p.next >= len(p.qa) {
		return models.QAPair{}, false
	}
	return p.qa[p.next], true
}

// Answer records text against the current question and advances to the next
// unanswered one. It returns true when the workflow is complete.
func (p *Planning) Answer(text string) bool {
	if p.next >= len(p.qa) {
		return true
	}
	p.qa[p.next].Answer = text
	p.qa[p.next].AnswerAt = p.clock().UTC()
	p.advance()
	return p.Done()
}

// Skip answers the current question with the skip sentinel and advances.
func (p *Planning) Skip() bool {
	return p.Answer(models.DefaultPlanningSkipAnswer)
}

func (p *Planning) advance() {
	for p.next < len(p.qa) && p.qa[p.next].IsAnswered() {
		p.next++
	}
}

// Done reports whether every question has been answered.
func (p *Planning) Done() bool { return p.next >= len(p.qa) }

// QA returns a snapshot of the accumulated question/answer pairs.
func (p *Planning) QA() []models.QAPair {
	out := make([]models.QAPair, len(p.qa))
	copy(out, p.qa)
	return out
}
