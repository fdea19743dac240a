package domain

import "fmt"

// ValidateQuestion returns every structural problem with q. An empty result means q is valid.
func ValidateQuestion(q QuizQuestion) []string {
	var problems []string
	label := q.ID
	if label == "" {
		label = fmt.Sprintf("#%d", q.Order)
	}

	if q.Type != SingleChoice && q.Type != MultiChoice {
		problems = append(problems, fmt.Sprintf("question %s: unsupported question type %q", label, q.Type))
	}
	if len(q.Options) < 2 {
		problems = append(problems, fmt.Sprintf("question %s: at least 2 options are required", label))
	}

	keys := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.Key == "" {
			problems = append(problems, fmt.Sprintf("question %s: option key must not be empty", label))
			continue
		}
		if _, dup := keys[opt.Key]; dup {
			problems = append(problems, fmt.Sprintf("question %s: duplicate option key %q", label, opt.Key))
		}
		keys[opt.Key] = struct{}{}
	}

	if len(q.CorrectAnswers) == 0 {
		problems = append(problems, fmt.Sprintf("question %s: at least one correct answer is required", label))
	}
	for _, key := range q.CorrectAnswers {
		if _, ok := keys[key]; !ok {
			problems = append(problems, fmt.Sprintf("question %s: correct answer %q is not an option", label, key))
		}
	}
	if q.Type == SingleChoice && len(q.CorrectAnswers) != 1 {
		problems = append(problems, fmt.Sprintf("question %s: single choice requires exactly one correct answer, got %d", label, len(q.CorrectAnswers)))
	}

	if q.Points <= 0 {
		problems = append(problems, fmt.Sprintf("question %s: points must be positive", label))
	}
	if q.NegativePoints < 0 {
		problems = append(problems, fmt.Sprintf("question %s: negative points must not be below zero", label))
	}
	return problems
}

// ValidateQuiz checks quiz settings and every question in the definition.
func ValidateQuiz(def QuizDefinition) []string {
	var problems []string
	quiz := def.Quiz

	if !quiz.AvailableFrom.Before(quiz.AvailableTo) {
		problems = append(problems, "available_from must be before available_to")
	}
	if quiz.TimeLimitMinutes != nil && *quiz.TimeLimitMinutes <= 0 {
		problems = append(problems, "time limit must be positive when set")
	}
	if quiz.SubmissionWindowMinutes < 0 {
		problems = append(problems, "submission window must not be negative")
	}
	if quiz.MaxAttempts < 1 {
		problems = append(problems, "max attempts must be at least 1")
	}
	if quiz.MaxScore <= 0 {
		problems = append(problems, "max score must be positive")
	}
	if quiz.PassingScore != nil && (*quiz.PassingScore < 0 || *quiz.PassingScore > quiz.MaxScore) {
		problems = append(problems, "passing score must be between 0 and max score")
	}

	ids := make(map[string]struct{}, len(def.Questions))
	for _, q := range def.Questions {
		if _, dup := ids[q.ID]; dup && q.ID != "" {
			problems = append(problems, fmt.Sprintf("duplicate question id %q", q.ID))
		}
		ids[q.ID] = struct{}{}
		problems = append(problems, ValidateQuestion(q)...)
	}
	return problems
}

// Validate wraps ValidateQuiz into an error value.
func (d QuizDefinition) Validate() error {
	if problems := ValidateQuiz(d); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
