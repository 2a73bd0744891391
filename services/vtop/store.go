package vtop

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
	"vtop-backend/services/vtop/db"
)

// SqlStore keeps records in sqlite or libsql, see sqliteutil.OpenDB.
type SqlStore struct {
	db  *sql.DB
	qry *db.Queries
}

func NewSqlStore(database *sql.DB) SqlStore {
	return SqlStore{
		db:  database,
		qry: db.New(database),
	}
}

func toNullString(doc json.RawMessage) sql.NullString {
	if len(doc) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(doc), Valid: true}
}

func fromNullString(value sql.NullString) json.RawMessage {
	if !value.Valid || value.String == "" {
		return nil
	}
	return json.RawMessage(value.String)
}

func (s SqlStore) Upsert(ctx context.Context, record StudentRecord) error {
	ctx, span := tracer.Start(ctx, "SqlStore:Upsert")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.UpsertStudent(ctx, db.UpsertStudentParams{
		RegNo:        record.RegNo,
		Profile:      toNullString(record.Profile),
		Semester:     toNullString(record.Semester),
		Timetable:    toNullString(record.Timetable),
		Marks:        toNullString(record.Marks),
		Attendance:   toNullString(record.Attendance),
		GradeHistory: toNullString(record.GradeHistory),
		CreditsInfo:  toNullString(record.CreditsInfo),
		GradesCount:  toNullString(record.GradesCount),
		CgpaDetails:  toNullString(record.CgpaDetails),
		ScrapedAt:    record.ScrapedAt.Unix(),
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s SqlStore) Get(ctx context.Context, regNo string) (StudentRecord, error) {
	ctx, span := tracer.Start(ctx, "SqlStore:Get")
	defer span.End()

	row, err := s.qry.GetStudent(ctx, regNo)
	if errors.Is(err, sql.ErrNoRows) {
		return StudentRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return StudentRecord{}, err
	}

	return StudentRecord{
		RegNo:        row.RegNo,
		Profile:      fromNullString(row.Profile),
		Semester:     fromNullString(row.Semester),
		Timetable:    fromNullString(row.Timetable),
		Marks:        fromNullString(row.Marks),
		Attendance:   fromNullString(row.Attendance),
		GradeHistory: fromNullString(row.GradeHistory),
		CreditsInfo:  fromNullString(row.CreditsInfo),
		GradesCount:  fromNullString(row.GradesCount),
		CgpaDetails:  fromNullString(row.CgpaDetails),
		ScrapedAt:    time.Unix(row.ScrapedAt, 0),
	}, nil
}

func (s SqlStore) Delete(ctx context.Context, regNo string) error {
	ctx, span := tracer.Start(ctx, "SqlStore:Delete")
	defer span.End()
	return s.qry.DeleteStudent(ctx, regNo)
}

// Count returns how many records are stored.
func (s SqlStore) Count(ctx context.Context) (int64, error) {
	return s.qry.CountStudents(ctx)
}
