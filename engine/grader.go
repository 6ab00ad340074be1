package engine

import (
	"math"
	"sort"

	"forma/models"
)

// QuestionAnswer is one submitted question with the answer IDs the
// learner selected.
type QuestionAnswer struct {
	QuestionID uint   `json:"question_id"`
	AnswerIDs  []uint `json:"answer_ids"`
}

// GradeResult is the outcome of scoring one submission.
type GradeResult struct {
	RawScore       int  `json:"raw_score"`
	TotalQuestions int  `json:"total_questions"`
	Percent        int  `json:"percent"`
	Passed         bool `json:"passed"`
}

// Grade scores a submission against a quiz's answer key. A question is
// correct iff the submitted answer ID set equals the correct answer ID
// set exactly, for single and multiple questions alike; no partial
// credit. Questions absent from the submission score zero. A quiz with
// no questions grades as percent=0, passed=false.
func Grade(quiz *models.Quiz, submission []QuestionAnswer) GradeResult {
	submitted := make(map[uint][]uint, len(submission))
	for _, qa := range submission {
		submitted[qa.QuestionID] = qa.AnswerIDs
	}

	result := GradeResult{TotalQuestions: len(quiz.Questions)}
	for _, question := range quiz.Questions {
		var correct []uint
		for _, answer := range question.Answers {
			if answer.Correct {
				correct = append(correct, answer.ID)
			}
		}
		// A question with no correct answers is a content-authoring
		// error: zero achievable credit, never a crash.
		if len(correct) == 0 {
			continue
		}
		if sameIDSet(submitted[question.ID], correct) {
			result.RawScore++
		}
	}

	if result.TotalQuestions > 0 {
		result.Percent = int(math.Round(float64(result.RawScore) / float64(result.TotalQuestions) * 100))
	}
	result.Passed = result.TotalQuestions > 0 && result.Percent >= quiz.PassingScore
	return result
}

// sameIDSet compares two ID lists as sets, tolerating duplicates and
// ordering in the submitted list.
func sameIDSet(a, b []uint) bool {
	a = sortedUnique(a)
	b = sortedUnique(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedUnique(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
