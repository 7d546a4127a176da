package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/intervue-backend/internal/model"
)

const interviewColumns = `id, candidate_id, scope, industry, position, difficulties, duration_minutes,
	question_count, per_question_seconds, question_ids, questions, status, end_reason,
	question_reached, elapsed_seconds, recording_path, created_at, started_at, ended_at`

// InterviewRepository handles interview session data access.
type InterviewRepository struct {
	pool *pgxpool.Pool
}

// NewInterviewRepository creates a new InterviewRepository.
func NewInterviewRepository(pool *pgxpool.Pool) *InterviewRepository {
	return &InterviewRepository{pool: pool}
}

// Create inserts a new interview in CREATED status.
func (r *InterviewRepository) Create(ctx context.Context, iv *model.Interview) error {
	iv.Status = model.InterviewStatusCreated
	return r.pool.QueryRow(ctx,
		`INSERT INTO interview_sessions
			(candidate_id, scope, industry, position, difficulties, duration_minutes,
			 question_count, per_question_seconds, question_ids, questions, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		iv.CandidateID, iv.Scope, iv.Industry, iv.Position, iv.Difficulties, iv.DurationMinutes,
		iv.QuestionCount, iv.PerQuestionSeconds, iv.QuestionIDs, iv.Questions, iv.Status,
	).Scan(&iv.ID, &iv.CreatedAt)
}

// GetByID retrieves an interview by ID.
func (r *InterviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Interview, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interview_sessions WHERE id = $1`, id)
	return scanInterview(row)
}

// historyOrders maps the accepted history sort keys to ORDER BY clauses.
var historyOrders = map[string]string{
	"date-desc":     "created_at DESC",
	"date-asc":      "created_at ASC",
	"duration-desc": "duration_minutes DESC, created_at DESC",
	"duration-asc":  "duration_minutes ASC, created_at DESC",
}

// ListByCandidate retrieves a candidate's interviews. Unknown sort keys
// fall back to newest first.
func (r *InterviewRepository) ListByCandidate(ctx context.Context, candidateID int, status, sort string, page, perPage int) ([]model.Interview, int64, error) {
	offset := (page - 1) * perPage

	where := ` WHERE candidate_id = $1`
	args := []any{candidateID}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	orderBy, ok := historyOrders[sort]
	if !ok {
		orderBy = historyOrders["date-desc"]
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM interview_sessions"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + interviewColumns + ` FROM interview_sessions` + where +
		fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", orderBy, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var interviews []model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, 0, err
		}
		interviews = append(interviews, *iv)
	}
	return interviews, total, rows.Err()
}

// MarkInProgress moves a CREATED interview to IN_PROGRESS. It reports false
// when the interview was not in CREATED status.
func (r *InterviewRepository) MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET status = $1, started_at = NOW()
		 WHERE id = $2 AND status = $3`,
		model.InterviewStatusInProgress, id, model.InterviewStatusCreated,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkAborted records a session that never entered RUNNING.
func (r *InterviewRepository) MarkAborted(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET status = $1, end_reason = $2, ended_at = NOW()
		 WHERE id = $3 AND status IN ($4, $5)`,
		model.InterviewStatusAborted, reason, id,
		model.InterviewStatusCreated, model.InterviewStatusInProgress,
	)
	return err
}

// MarkAbandoned records a stream that detached before its session ended.
// Sessions the evaluation worker already closed are left untouched.
func (r *InterviewRepository) MarkAbandoned(ctx context.Context, id uuid.UUID, questionReached, elapsedSeconds int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET status = $1, end_reason = 'DETACHED', question_reached = $2,
		     elapsed_seconds = $3, ended_at = NOW()
		 WHERE id = $4 AND status = $5`,
		model.InterviewStatusAbandoned, questionReached, elapsedSeconds, id, model.InterviewStatusInProgress,
	)
	return err
}

// SetRecordingPath stores where the session's recording was written.
func (r *InterviewRepository) SetRecordingPath(ctx context.Context, id uuid.UUID, path string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET recording_path = $1 WHERE id = $2`, path, id,
	)
	return err
}

func scanInterview(row pgx.Row) (*model.Interview, error) {
	iv := &model.Interview{}
	err := row.Scan(
		&iv.ID, &iv.CandidateID, &iv.Scope, &iv.Industry, &iv.Position, &iv.Difficulties, &iv.DurationMinutes,
		&iv.QuestionCount, &iv.PerQuestionSeconds, &iv.QuestionIDs, &iv.Questions, &iv.Status, &iv.EndReason,
		&iv.QuestionReached, &iv.ElapsedSeconds, &iv.RecordingPath, &iv.CreatedAt, &iv.StartedAt, &iv.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// ListEvents retrieves the recorded timeline of an interview.
func (r *InterviewRepository) ListEvents(ctx context.Context, id uuid.UUID) ([]model.InterviewEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT interview_id, event_type, phase, question_index, remaining_total_seconds,
		        remaining_slot_seconds, detail, recorded_at
		 FROM interview_events
		 WHERE interview_id = $1
		 ORDER BY recorded_at, id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.InterviewEvent
	for rows.Next() {
		var e model.InterviewEvent
		var interviewID uuid.UUID
		if err := rows.Scan(&interviewID, &e.Type, &e.Phase, &e.QuestionIndex, &e.RemainingTotalSeconds,
			&e.RemainingSlotSeconds, &e.Detail, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.InterviewID = interviewID.String()
		events = append(events, e)
	}
	return events, rows.Err()
}
