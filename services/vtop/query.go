package vtop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"vtop-backend/lib/scrapers/vtop"
)

func (s *Service) storedField(ctx context.Context, userId string, field Field) (json.RawMessage, error) {
	record, err := s.records.Get(ctx, userId)
	if err != nil {
		return nil, err
	}
	doc, ok := record.Field(field)
	if !ok {
		return nil, fmt.Errorf("unknown field '%s'", field)
	}
	if isNullDocument(doc) {
		return nil, ErrRecordNotFound
	}
	if !json.Valid(doc) {
		slog.WarnContext(ctx, "stored field is not valid json", "user_id", userId, "field", field)
		return nil, ErrRecordNotFound
	}
	return doc, nil
}

// GetField returns the stored document of a whole field, ErrRecordNotFound
// means there is no record or the field was not scraped.
func (s *Service) GetField(ctx context.Context, userId string, field Field) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "GetField")
	defer span.End()

	if !slices.Contains(WholeFields, field) {
		return nil, fmt.Errorf("field '%s' is not read as a whole", field)
	}
	doc, err := s.storedField(ctx, userId, field)
	if err != nil {
		slog.DebugContext(ctx, "field not available", "user_id", userId, "field", field, "err", err)
		return nil, err
	}
	return doc, nil
}

// GetSemesterField returns a per semester field narrowed to one semester,
// or all of it when semester is empty. Empty values (null, 0, "", {} and
// []) are reported as ErrRecordNotFound.
func (s *Service) GetSemesterField(ctx context.Context, userId string, field Field, semester string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "GetSemesterField")
	defer span.End()

	if !slices.Contains(SemesterFields, field) {
		return nil, fmt.Errorf("field '%s' is not keyed by semester", field)
	}
	doc, err := s.storedField(ctx, userId, field)
	if err != nil {
		slog.DebugContext(ctx, "field not available", "user_id", userId, "field", field, "err", err)
		return nil, err
	}

	if semester != "" {
		var semesters map[string]json.RawMessage
		err = json.Unmarshal(doc, &semesters)
		if err != nil {
			slog.WarnContext(ctx, "stored field is not keyed by semester", "user_id", userId, "field", field, "err", err)
			return nil, ErrRecordNotFound
		}
		narrowed, ok := semesters[semester]
		if !ok {
			slog.DebugContext(ctx, "semester not found in field", "user_id", userId, "field", field, "semester", semester)
			return nil, ErrRecordNotFound
		}
		doc = narrowed
	}

	if isEmptyDocument(doc) {
		return nil, ErrRecordNotFound
	}
	return doc, nil
}

// Courses maps every course code in the stored timetable to its name, the
// first name seen for a code wins. ErrRecordNotFound means there is no
// timetable.
func (s *Service) Courses(ctx context.Context, userId string) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "Courses")
	defer span.End()

	doc, err := s.storedField(ctx, userId, FieldTimetable)
	if err != nil {
		return nil, err
	}

	semesters, err := objectMembers(doc)
	if err != nil {
		return nil, fmt.Errorf("decode timetable: %w", err)
	}

	courses := map[string]string{}
	for _, semester := range semesters {
		days, err := objectMembers(semester.value)
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed timetable semester", "user_id", userId, "semester", semester.key, "err", err)
			continue
		}
		for _, day := range days {
			var entries []vtop.TimetableEntry
			err := json.Unmarshal(day.value, &entries)
			if err != nil {
				slog.WarnContext(ctx, "skipping malformed timetable day", "user_id", userId, "semester", semester.key, "day", day.key, "err", err)
				continue
			}
			for _, entry := range entries {
				if entry.CourseCode == "" || entry.CourseName == "" {
					continue
				}
				if _, seen := courses[entry.CourseCode]; !seen {
					courses[entry.CourseCode] = entry.CourseName
				}
			}
		}
	}
	return courses, nil
}

func isNullDocument(doc json.RawMessage) bool {
	trimmed := bytes.TrimSpace(doc)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func isEmptyDocument(doc json.RawMessage) bool {
	if isNullDocument(doc) {
		return true
	}
	var value any
	err := json.Unmarshal(doc, &value)
	if err != nil {
		return true
	}
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

type member struct {
	key   string
	value json.RawMessage
}

// objectMembers decodes a json object keeping the order of its members.
func objectMembers(doc json.RawMessage) ([]member, error) {
	decoder := json.NewDecoder(bytes.NewReader(doc))
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object, got %v", token)
	}

	var members []member
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", token)
		}
		var value json.RawMessage
		err = decoder.Decode(&value)
		if err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: value})
	}
	return members, nil
}
