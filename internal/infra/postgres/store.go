package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-engine/internal/domain"
)

const uniqueViolation = "23505"

// Store persists quizzes, attempts and responses in Postgres. It implements
// app.QuizDataService and the catalogs' DefinitionLoader.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const quizColumns = `id, title, class_id, branch_id, teacher_id, available_from, available_to,
	time_limit_minutes, submission_window_minutes, max_attempts, max_score, passing_score,
	shuffle_questions, shuffle_options, show_correct_answers, is_active`

const attemptColumns = `id, quiz_id, student_id, attempt_number, status, started_at, submitted_at,
	score, max_score, percentage, passed, time_taken_seconds`

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context, classID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE class_id=$1 ORDER BY id`, classID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.QuizQuestion, error) {
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, prompt, question_type, options, correct_answers, explanation,
		       points, negative_points, question_order
		FROM quiz_questions WHERE quiz_id=$1 ORDER BY question_order, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizQuestion, 0)
	for rows.Next() {
		var (
			q            domain.QuizQuestion
			questionType string
			options      []byte
		)
		err := rows.Scan(&q.ID, &q.QuizID, &q.Prompt, &questionType, &options, &q.CorrectAnswers, &q.Explanation,
			&q.Points, &q.NegativePoints, &q.Order)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(questionType)
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// LoadDefinition reads a quiz and its questions.
func (s *Store) LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	questions, err := s.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return domain.QuizDefinition{Quiz: quiz, Questions: questions}, nil
}

// SaveQuiz upserts the quiz and replaces its question set in one transaction.
func (s *Store) SaveQuiz(ctx context.Context, def domain.QuizDefinition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := def.Quiz
	_, err = tx.Exec(ctx, `
		INSERT INTO quizzes (`+quizColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, class_id=EXCLUDED.class_id, branch_id=EXCLUDED.branch_id,
			teacher_id=EXCLUDED.teacher_id, available_from=EXCLUDED.available_from,
			available_to=EXCLUDED.available_to, time_limit_minutes=EXCLUDED.time_limit_minutes,
			submission_window_minutes=EXCLUDED.submission_window_minutes,
			max_attempts=EXCLUDED.max_attempts, max_score=EXCLUDED.max_score,
			passing_score=EXCLUDED.passing_score, shuffle_questions=EXCLUDED.shuffle_questions,
			shuffle_options=EXCLUDED.shuffle_options, show_correct_answers=EXCLUDED.show_correct_answers,
			is_active=EXCLUDED.is_active, updated_at=now()`,
		q.ID, q.Title, q.ClassID, q.BranchID, q.TeacherID, q.AvailableFrom, q.AvailableTo,
		q.TimeLimitMinutes, q.SubmissionWindowMinutes, q.MaxAttempts, q.MaxScore, q.PassingScore,
		q.ShuffleQuestions, q.ShuffleOptions, q.ShowCorrectAnswers, q.IsActive)
	if err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}

	ids := make([]string, 0, len(def.Questions))
	for _, question := range def.Questions {
		ids = append(ids, question.ID)
		options, err := json.Marshal(question.Options)
		if err != nil {
			return fmt.Errorf("marshal options of %s: %w", question.ID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO quiz_questions (id, quiz_id, prompt, question_type, options, correct_answers,
				explanation, points, negative_points, question_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				quiz_id=EXCLUDED.quiz_id, prompt=EXCLUDED.prompt, question_type=EXCLUDED.question_type,
				options=EXCLUDED.options, correct_answers=EXCLUDED.correct_answers,
				explanation=EXCLUDED.explanation, points=EXCLUDED.points,
				negative_points=EXCLUDED.negative_points, question_order=EXCLUDED.question_order`,
			question.ID, q.ID, question.Prompt, string(question.Type), options, question.CorrectAnswers,
			question.Explanation, question.Points, question.NegativePoints, question.Order)
		if err != nil {
			return fmt.Errorf("upsert question %s: %w", question.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quiz_questions WHERE quiz_id=$1 AND NOT (id = ANY($2))`, q.ID, ids); err != nil {
		return fmt.Errorf("prune questions: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListAttempts(ctx context.Context, quizID, studentID string) ([]domain.QuizAttempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts
		WHERE quiz_id=$1 AND ($2 = '' OR student_id=$2)
		ORDER BY started_at, attempt_number`, quizID, studentID)
}

func (s *Store) ListInProgressAttempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts
		WHERE status=$1 ORDER BY started_at`, string(domain.StatusInProgress))
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id=$1`, attemptID)
	a, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return a, nil
}

// CreateAttempt relies on the partial unique index to reject a second IN_PROGRESS attempt.
func (s *Store) CreateAttempt(ctx context.Context, a domain.QuizAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, quiz_id, student_id, attempt_number, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.QuizID, a.StudentID, a.AttemptNumber, string(a.Status), a.StartedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrAttemptConflict, err.Error())
	}
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// FinalizeAttempt moves the attempt out of IN_PROGRESS and stores the scored responses atomically.
func (s *Store) FinalizeAttempt(ctx context.Context, a domain.QuizAttempt, responses []domain.QuizResponse) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var score, maxScore, percentage *float64
	var passed *bool
	if a.Grade != nil {
		score, maxScore, percentage = &a.Grade.Score, &a.Grade.MaxScore, &a.Grade.Percentage
		passed = a.Grade.Passed
	}
	tag, err := tx.Exec(ctx, `
		UPDATE quiz_attempts SET status=$2, submitted_at=$3, score=$4, max_score=$5, percentage=$6,
			passed=$7, time_taken_seconds=$8
		WHERE id=$1 AND status='IN_PROGRESS'`,
		a.ID, string(a.Status), a.SubmittedAt, score, maxScore, percentage, passed, a.TimeTakenSeconds)
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM quiz_attempts WHERE id=$1`, a.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("finalize attempt: %w", err)
		}
		return fmt.Errorf("%w: attempt is %s", domain.ErrAttemptConflict, status)
	}

	for _, r := range responses {
		if err := upsertResponse(ctx, tx, a.ID, r); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SaveResponse row-locks the attempt so a concurrent finalization cannot interleave.
func (s *Store) SaveResponse(ctx context.Context, r domain.QuizResponse) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM quiz_attempts WHERE id=$1 FOR UPDATE`, r.AttemptID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAttemptNotFound
	}
	if err != nil {
		return fmt.Errorf("lock attempt: %w", err)
	}
	if domain.AttemptStatus(status) != domain.StatusInProgress {
		return fmt.Errorf("%w: attempt is %s", domain.ErrAttemptConflict, status)
	}
	if err := upsertResponse(ctx, tx, r.AttemptID, r); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListResponses(ctx context.Context, attemptID string) ([]domain.QuizResponse, error) {
	if _, err := s.GetAttempt(ctx, attemptID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT attempt_id, question_id, selected_answers, is_correct, points_earned, points_deducted,
		       time_spent_seconds
		FROM quiz_responses WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizResponse, 0)
	for rows.Next() {
		var r domain.QuizResponse
		err := rows.Scan(&r.AttemptID, &r.QuestionID, &r.SelectedAnswers, &r.IsCorrect,
			&r.PointsEarned, &r.PointsDeducted, &r.TimeSpentSeconds)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) queryAttempts(ctx context.Context, sql string, args ...interface{}) ([]domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizAttempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func upsertResponse(ctx context.Context, tx pgx.Tx, attemptID string, r domain.QuizResponse) error {
	selected := r.SelectedAnswers
	if selected == nil {
		selected = []string{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO quiz_responses (attempt_id, question_id, selected_answers, is_correct,
			points_earned, points_deducted, time_spent_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			selected_answers=EXCLUDED.selected_answers, is_correct=EXCLUDED.is_correct,
			points_earned=EXCLUDED.points_earned, points_deducted=EXCLUDED.points_deducted,
			time_spent_seconds=EXCLUDED.time_spent_seconds`,
		attemptID, r.QuestionID, selected, r.IsCorrect, r.PointsEarned, r.PointsDeducted, r.TimeSpentSeconds)
	if err != nil {
		return fmt.Errorf("upsert response %s: %w", r.QuestionID, err)
	}
	return nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Title, &q.ClassID, &q.BranchID, &q.TeacherID, &q.AvailableFrom, &q.AvailableTo,
		&q.TimeLimitMinutes, &q.SubmissionWindowMinutes, &q.MaxAttempts, &q.MaxScore, &q.PassingScore,
		&q.ShuffleQuestions, &q.ShuffleOptions, &q.ShowCorrectAnswers, &q.IsActive)
	return q, err
}

func scanAttempt(row pgx.Row) (domain.QuizAttempt, error) {
	var a domain.QuizAttempt
	var status string
	var score, maxScore, percent *float64
	var passed *bool
	err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.AttemptNumber, &status, &a.StartedAt, &a.SubmittedAt,
		&score, &maxScore, &percent, &passed, &a.TimeTakenSeconds)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	a.Status = domain.AttemptStatus(status)
	if score != nil {
		a.Grade = &domain.Grade{Score: *score, Passed: passed}
		if maxScore != nil {
			a.Grade.MaxScore = *maxScore
		}
		if percent != nil {
			a.Grade.Percentage = *percent
		}
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
