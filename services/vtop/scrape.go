package vtop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"vtop-backend/lib/scrapers/vtop"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ScrapeResult struct {
	// Name is the student's name, nil when the profile could not be
	// scraped.
	Name *string
}

// scrapeRun is the state of one scrape, every field stays nil when its
// phase fails.
type scrapeRun struct {
	client *vtop.Client
	userId string
	csrf   string

	profile      *vtop.Profile
	semesters    []string
	descriptors  map[string]SemesterDescriptor
	timetable    map[string]vtop.Timetable
	marks        map[string]vtop.Marks
	attendance   map[string]vtop.Attendance
	gpa          map[string]float64
	gradeHistory vtop.GradeHistory
	cgpa         *vtop.CgpaDetails
}

func countPhase(phase Field, err error) {
	outcome := outcomeOk
	if err != nil {
		outcome = outcomeFailed
	}
	scrapePhaseTotal.WithLabelValues(string(phase), outcome).Inc()
}

// Scrape fetches every record of userId from the portal with the session
// left by a successful Login and replaces the stored record. The session
// is consumed whether or not the scrape succeeds.
//
// When force is false and a record is already stored, nothing is scraped
// and the stored name is returned.
func (s *Service) Scrape(ctx context.Context, userId string, force bool) (ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userId),
		attribute.Bool("force", force),
	)

	err := s.sessions.Validate(userId)
	if err != nil {
		return ScrapeResult{}, err
	}

	if !force {
		result, found, err := s.storedResult(ctx, userId)
		if err != nil {
			return ScrapeResult{}, err
		}
		if found {
			slog.InfoContext(ctx, "record already exists, skipping scrape", "user_id", userId)
			return result, nil
		}
	}

	release, err := s.locks.acquire(ctx, userId)
	if err != nil {
		return ScrapeResult{}, err
	}
	defer release()

	scrapeCtx, cancel := context.WithTimeout(ctx, s.scrapeTimeout)
	defer cancel()

	defer func() {
		s.sessions.Delete(userId)
		s.sessions.DeleteToken(userId)
	}()

	client, ok := s.sessions.Get(userId)
	if !ok {
		return ScrapeResult{}, ErrSessionNotFound
	}
	csrf, ok := s.sessions.Token(userId)
	if !ok {
		return ScrapeResult{}, fmt.Errorf("%w: not logged in", ErrSessionNotFound)
	}

	run := &scrapeRun{
		client: client,
		userId: userId,
		csrf:   csrf,
	}
	run.scrapeProfile(scrapeCtx)
	run.scrapeSemesters(scrapeCtx)
	run.scrapeTimetable(scrapeCtx)
	run.scrapeMarks(scrapeCtx)
	run.scrapeAttendance(scrapeCtx)
	run.scrapeGpa(scrapeCtx)
	run.scrapeGradeHistory(scrapeCtx)

	record, err := run.record()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ScrapeResult{}, fmt.Errorf("%w: encode record: %w", ErrPersistence, err)
	}
	record.ScrapedAt = s.clock.Now()

	// the record is saved even when the scrape ran out of time or the
	// caller went away
	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()
	err = s.records.Upsert(persistCtx, record)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to persist student record", "user_id", userId, "err", err)
		return ScrapeResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	slog.InfoContext(ctx, "scrape finished", "user_id", userId, "semesters", len(run.semesters))

	var result ScrapeResult
	if run.profile != nil {
		name := run.profile.Name
		result.Name = &name
	}
	return result, nil
}

func (s *Service) storedResult(ctx context.Context, userId string) (ScrapeResult, bool, error) {
	record, err := s.records.Get(ctx, userId)
	if errors.Is(err, ErrRecordNotFound) {
		return ScrapeResult{}, false, nil
	}
	if err != nil {
		return ScrapeResult{}, false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var result ScrapeResult
	if len(record.Profile) > 0 {
		var profile vtop.Profile
		err = json.Unmarshal(record.Profile, &profile)
		if err != nil {
			slog.WarnContext(ctx, "stored profile is not valid json", "user_id", userId, "err", err)
			return result, true, nil
		}
		result.Name = &profile.Name
	}
	return result, true, nil
}

func (r *scrapeRun) scrapeProfile(ctx context.Context) {
	profile, err := func() (vtop.Profile, error) {
		page, err := r.client.Profile(ctx, r.userId, r.csrf)
		if err != nil {
			return vtop.Profile{}, err
		}
		return vtop.ExtractProfile(page.Body)
	}()
	countPhase(FieldProfile, err)
	if err != nil {
		slog.WarnContext(ctx, "failed to scrape profile", "user_id", r.userId, "err", err)
		return
	}
	r.profile = &profile
}

func (r *scrapeRun) scrapeSemesters(ctx context.Context) {
	err := func() error {
		page, err := r.client.Semesters(ctx, r.userId, r.csrf)
		if err != nil {
			return err
		}
		options, err := vtop.ExtractSemesters(page.Body)
		if err != nil {
			return err
		}

		semesters := make([]string, 0, len(options))
		descriptors := make(map[string]SemesterDescriptor, len(options))
		for _, option := range options {
			descriptor, err := DescribeSemester(r.userId, option.Code, option.Name)
			if err != nil {
				return err
			}
			semesters = append(semesters, option.Code)
			descriptors[option.Code] = descriptor
		}
		r.semesters = semesters
		r.descriptors = descriptors
		return nil
	}()
	countPhase(FieldSemester, err)
	if err != nil {
		slog.WarnContext(ctx, "failed to scrape semesters", "user_id", r.userId, "err", err)
	}
}

func (r *scrapeRun) scrapeTimetable(ctx context.Context) {
	r.timetable = collectSemesters(ctx, FieldTimetable, r.semesters, vtop.Timetable(nil),
		func(ctx context.Context, semester string) (vtop.Timetable, error) {
			page, err := r.client.Timetable(ctx, r.userId, r.csrf, semester)
			if err != nil {
				return nil, err
			}
			return vtop.ExtractTimetable(page.Body)
		},
	)
}

func (r *scrapeRun) scrapeMarks(ctx context.Context) {
	r.marks = collectSemesters(ctx, FieldMarks, r.semesters, vtop.Marks{},
		func(ctx context.Context, semester string) (vtop.Marks, error) {
			page, err := r.client.Marks(ctx, r.userId, r.csrf, semester)
			if err != nil {
				return nil, err
			}
			return vtop.ExtractMarks(page.Body)
		},
	)
}

func (r *scrapeRun) scrapeAttendance(ctx context.Context) {
	r.attendance = collectSemesters(ctx, FieldAttendance, r.semesters, vtop.Attendance(nil),
		func(ctx context.Context, semester string) (vtop.Attendance, error) {
			page, err := r.client.Attendance(ctx, r.userId, r.csrf, semester)
			if err != nil {
				return nil, err
			}
			return vtop.ExtractAttendance(page.Body)
		},
	)
}

func (r *scrapeRun) scrapeGpa(ctx context.Context) {
	r.gpa = collectSemesters(ctx, FieldCgpaDetails, r.semesters, float64(0),
		func(ctx context.Context, semester string) (float64, error) {
			page, err := r.client.SemesterGrades(ctx, r.userId, r.csrf, semester)
			if err != nil {
				return 0, err
			}
			return vtop.ExtractGpa(page.Body)
		},
	)
}

func (r *scrapeRun) scrapeGradeHistory(ctx context.Context) {
	page, err := r.client.GradeHistory(ctx, r.userId, r.csrf)
	countPhase(FieldGradeHistory, err)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch grade history", "user_id", r.userId, "err", err)
		return
	}

	history, err := vtop.ExtractGradeHistory(page.Body)
	if err != nil {
		slog.WarnContext(ctx, "failed to extract grade history", "user_id", r.userId, "err", err)
	} else {
		r.gradeHistory = history
	}

	cgpa, err := vtop.ExtractCgpaDetails(page.Body)
	countPhase(FieldCreditsInfo, err)
	if err != nil {
		slog.WarnContext(ctx, "failed to extract cgpa details, using zeroes", "user_id", r.userId, "err", err)
		cgpa = vtop.CgpaDetails{}
	}
	r.cgpa = &cgpa
}

func (r *scrapeRun) record() (StudentRecord, error) {
	var creditsInfo *vtop.CreditsInfo
	var gradesCount *vtop.GradesCount
	cgpaDetails := r.gpa
	if r.cgpa != nil {
		creditsInfo = &r.cgpa.Credits
		gradesCount = &r.cgpa.Grades
		if cgpaDetails != nil {
			cgpaDetails["cgpa"] = r.cgpa.Credits.Cgpa
		}
	}

	record := StudentRecord{RegNo: r.userId}
	fields := []struct {
		target *json.RawMessage
		value  any
	}{
		{&record.Profile, r.profile},
		{&record.Semester, r.descriptors},
		{&record.Timetable, r.timetable},
		{&record.Marks, r.marks},
		{&record.Attendance, r.attendance},
		{&record.GradeHistory, r.gradeHistory},
		{&record.CreditsInfo, creditsInfo},
		{&record.GradesCount, gradesCount},
		{&record.CgpaDetails, cgpaDetails},
	}
	for _, field := range fields {
		doc, err := encodeField(field.value)
		if err != nil {
			return StudentRecord{}, err
		}
		*field.target = doc
	}
	return record, nil
}
