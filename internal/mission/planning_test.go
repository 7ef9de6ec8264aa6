package mission

import (
	"testing"

	"github.com/missionkit/missionctl/pkg/models"
)

func TestPlanning_FiveDefaultQuestions(t *testing.T) {
	t.Parallel()
	p := StartPlanning("t1", nil)
	if got := len(p.QA()); got != 5 {
		t.Fatalf("question count: got %d, want 5", got)
	}
	cur, ok := p.Current()
	if !ok {
		t.Fatal("Current: no question on a fresh workflow")
	}
	if cur.Question != DefaultPlanningQuestions[0] {
		t.Errorf("Current: got %q, want first default question", cur.Question)
	}
}

func TestPlanning_AnswerAdvances(t *testing.T) {
	t.Parallel()
	p := StartPlanning("t1", []string{"q1", "q2"})

	if done := p.Answer("a1"); done {
		t.Fatal("Answer: done after first of two questions")
	}
	cur, _ := p.Current()
	if cur.Question != "q2" {
		t.Errorf("Current after answer: got %q, want q2", cur.Question)
	}
	if !p.Answer("a2") {
		t.Fatal("Answer: not done after last question")
	}
	if _, ok := p.Current(); ok {
		t.Error("Current after completion: still has a question")
	}

	qa := p.QA()
	if qa[0].Answer != "a1" || qa[1].Answer != "a2" {
		t.Errorf("QA answers: got %q, %q", qa[0].Answer, qa[1].Answer)
	}
	if qa[0].AnswerAt.IsZero() {
		t.Error("QA: AnswerAt not stamped")
	}
}

func TestPlanning_SkipRecordsSentinel(t *testing.T) {
	t.Parallel()
	p := StartPlanning("t1", []string{"q1"})
	if !p.Skip() {
		t.Fatal("Skip: not done after skipping the only question")
	}
	if got := p.QA()[0].Answer; got != models.DefaultPlanningSkipAnswer {
		t.Errorf("skip answer: got %q, want %q", got, models.DefaultPlanningSkipAnswer)
	}
}

func TestPlanning_DuplicateQuestionWording(t *testing.T) {
	t.Parallel()
	// Two questions with identical text; answers must land by position.
	p := StartPlanning("t1", []string{"why?", "why?"})
	p.Answer("first")
	p.Answer("second")
	qa := p.QA()
	if qa[0].Answer != "first" || qa[1].Answer != "second" {
		t.Errorf("answers misrouted: got %q, %q", qa[0].Answer, qa[1].Answer)
	}
}

func TestPlanning_AnswerAfterDone(t *testing.T) {
	t.Parallel()
	p := StartPlanning("t1", []string{"q1"})
	p.Answer("a1")
	if !p.Answer("extra") {
		t.Error("Answer after done: should report done")
	}
	if got := p.QA()[0].Answer; got != "a1" {
		t.Errorf("extra answer overwrote recorded one: got %q", got)
	}
}
