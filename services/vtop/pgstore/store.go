package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"vtop-backend/lib/telemetry"
	"vtop-backend/services/vtop"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var Schema string

var tracer = telemetry.Tracer("vtop.services.vtop.pgstore")

// Store keeps records in postgres as jsonb documents.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at url and applies the schema.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	_, err = pool.Exec(ctx, Schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

func document(doc json.RawMessage) any {
	if len(doc) == 0 {
		return nil
	}
	return string(doc)
}

func (s *Store) Upsert(ctx context.Context, record vtop.StudentRecord) error {
	ctx, span := tracer.Start(ctx, "Upsert")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		insert into student (
			reg_no, profile, semester, timetable, marks, attendance,
			grade_history, credits_info, grades_count, cgpa_details, scraped_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		on conflict (reg_no) do update set
			profile = excluded.profile,
			semester = excluded.semester,
			timetable = excluded.timetable,
			marks = excluded.marks,
			attendance = excluded.attendance,
			grade_history = excluded.grade_history,
			credits_info = excluded.credits_info,
			grades_count = excluded.grades_count,
			cgpa_details = excluded.cgpa_details,
			scraped_at = excluded.scraped_at
	`
	_, err = tx.Exec(
		ctx, query,
		record.RegNo,
		document(record.Profile),
		document(record.Semester),
		document(record.Timetable),
		document(record.Marks),
		document(record.Attendance),
		document(record.GradeHistory),
		document(record.CreditsInfo),
		document(record.GradesCount),
		document(record.CgpaDetails),
		record.ScrapedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, regNo string) (vtop.StudentRecord, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	query := `
		select
			reg_no, profile, semester, timetable, marks, attendance,
			grade_history, credits_info, grades_count, cgpa_details, scraped_at
		from student
		where reg_no = $1
	`

	var record vtop.StudentRecord
	var profile, semester, timetable, marks, attendance, gradeHistory, creditsInfo, gradesCount, cgpaDetails []byte
	err := s.pool.QueryRow(ctx, query, regNo).Scan(
		&record.RegNo,
		&profile,
		&semester,
		&timetable,
		&marks,
		&attendance,
		&gradeHistory,
		&creditsInfo,
		&gradesCount,
		&cgpaDetails,
		&record.ScrapedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return vtop.StudentRecord{}, vtop.ErrRecordNotFound
	}
	if err != nil {
		return vtop.StudentRecord{}, err
	}

	record.Profile = profile
	record.Semester = semester
	record.Timetable = timetable
	record.Marks = marks
	record.Attendance = attendance
	record.GradeHistory = gradeHistory
	record.CreditsInfo = creditsInfo
	record.GradesCount = gradesCount
	record.CgpaDetails = cgpaDetails
	return record, nil
}

func (s *Store) Delete(ctx context.Context, regNo string) error {
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	_, err := s.pool.Exec(ctx, `delete from student where reg_no = $1`, regNo)
	return err
}

// Count returns how many records are stored.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `select count(*) from student`).Scan(&count)
	return count, err
}
