package services

import (
	"context"
	"testing"
	"time"

	"github.com/applymint/applymint/internal/events"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/utils"
)

func TestCreateSessionDefaults(t *testing.T) {
	h := newHarness()
	s := h.mustCreate("11111111-1111-1111-1111-111111111111")

	if s.Status != models.StatusPending || s.CurrentQuestionIndex != 0 {
		t.Errorf("status=%s index=%d", s.Status, s.CurrentQuestionIndex)
	}
	if s.Difficulty != "mid" || s.Duration != 30 || s.TotalQuestions != 5 {
		t.Errorf("defaults = %s/%d/%d", s.Difficulty, s.Duration, s.TotalQuestions)
	}
	if s.StartedAt != nil || s.CompletedAt != nil {
		t.Error("timestamps set on a new session")
	}
	if len(h.pub.keys) != 1 || h.pub.keys[0] != events.SessionCreated {
		t.Errorf("published %v", h.pub.keys)
	}
}

func TestCreateSessionQuestionTypesSetTotal(t *testing.T) {
	h := newHarness()
	s, err := h.sessions.Create(context.Background(), "u", CreateSessionInput{
		Title: "t", JobRole: "r", Mode: "voice",
		QuestionTypes: []string{"technical", "behavioral"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalQuestions != 2 {
		t.Errorf("totalQuestions = %d", s.TotalQuestions)
	}
	if got := s.RequestedQuestionTypes(); len(got) != 2 || got[1] != "behavioral" {
		t.Errorf("question types = %v", got)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	h := newHarness()
	neg := -1
	cases := []struct {
		name string
		in   CreateSessionInput
	}{
		{"missing title", CreateSessionInput{JobRole: "r", Mode: "text"}},
		{"missing role", CreateSessionInput{Title: "t", Mode: "text"}},
		{"missing mode", CreateSessionInput{Title: "t", JobRole: "r"}},
		{"bad mode", CreateSessionInput{Title: "t", JobRole: "r", Mode: "video"}},
		{"bad duration", CreateSessionInput{Title: "t", JobRole: "r", Mode: "text", Duration: &neg}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.sessions.Create(context.Background(), "u", tc.in)
			if !utils.IsCode(err, utils.CodeInvalidArgument) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestCreateIdempotentReplays(t *testing.T) {
	h := newHarness()
	in := CreateSessionInput{Title: "t", JobRole: "r", Mode: "text"}
	ctx := context.Background()

	a, err := h.sessions.CreateIdempotent(ctx, "u", "key-1", in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.sessions.CreateIdempotent(ctx, "u", "key-1", in)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("replay created a new session: %s != %s", a.ID, b.ID)
	}
	c, _ := h.sessions.CreateIdempotent(ctx, "other", "key-1", in)
	if c.ID == a.ID {
		t.Error("keys must be scoped per user")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	h := newHarness()
	for _, id := range []string{"s1", "00000000-0000-0000-0000-000000000000"} {
		s, err := h.sessions.Get(context.Background(), id)
		if err != nil || s != nil {
			t.Errorf("Get(%q) = %v, %v", id, s, err)
		}
	}
	s, err := h.sessions.Update(context.Background(), "00000000-0000-0000-0000-000000000000", models.SessionPatch{})
	if err != nil || s != nil {
		t.Errorf("Update missing = %v, %v", s, err)
	}
}

func TestGetOwned(t *testing.T) {
	h := newHarness()
	s := h.mustCreate("owner")
	ctx := context.Background()

	if _, err := h.sessions.GetOwned(ctx, models.Caller{ID: "owner"}, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.sessions.GetOwned(ctx, models.Caller{ID: "intruder"}, s.ID); !utils.IsCode(err, utils.CodeForbidden) {
		t.Errorf("non-owner err = %v", err)
	}
	if _, err := h.sessions.GetOwned(ctx, models.Caller{ID: "intruder"}, "s1"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	h := newHarness()
	first := h.mustCreate("u")
	time.Sleep(2 * time.Millisecond)
	second := h.mustCreate("u")
	h.mustCreate("someone-else")

	rows, err := h.sessions.ListByUser(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Errorf("rows = %+v", rows)
	}
}

func TestUpdateChangesOnlyPatchedFieldsAndBumpsUpdatedAt(t *testing.T) {
	h := newHarness()
	s := h.mustCreate("u")
	title := "Renamed"

	out, err := h.sessions.Update(context.Background(), s.ID, models.SessionPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if out.Title != "Renamed" || out.JobRole != s.JobRole || out.Status != s.Status || out.Duration != s.Duration {
		t.Errorf("out = %+v", out)
	}
	if out.UpdatedAt.Before(s.UpdatedAt) {
		t.Errorf("updatedAt went backwards: %v < %v", out.UpdatedAt, s.UpdatedAt)
	}
}

func TestUpdateLifecycle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.mustCreate("u")
	status := func(v models.SessionStatus) *models.SessionStatus { return &v }

	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Status: status(models.StatusCompleted)}); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("pending -> completed err = %v", err)
	}

	active, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Status: status(models.StatusActive)})
	if err != nil {
		t.Fatal(err)
	}
	if active.StartedAt == nil || active.CompletedAt != nil {
		t.Errorf("active timestamps = %v %v", active.StartedAt, active.CompletedAt)
	}

	done, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Status: status(models.StatusCompleted)})
	if err != nil {
		t.Fatal(err)
	}
	if done.CompletedAt == nil || !done.StartedAt.Equal(*active.StartedAt) {
		t.Errorf("completed timestamps = %v %v", done.StartedAt, done.CompletedAt)
	}

	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Status: status(models.StatusActive)}); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("reopen err = %v", err)
	}
	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Status: status("paused")}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("unknown status err = %v", err)
	}
}

func TestUpdateQuestionIndexBounds(t *testing.T) {
	h := newHarness()
	s := h.mustCreate("u")
	ctx := context.Background()

	for _, idx := range []int{-1, 6} {
		i := idx
		if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{CurrentQuestionIndex: &i}); !utils.IsCode(err, utils.CodeInvalidArgument) {
			t.Errorf("index %d err = %v", idx, err)
		}
	}
	five := 5
	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{CurrentQuestionIndex: &five}); err != nil {
		t.Errorf("index 5 err = %v", err)
	}
	two := 2
	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{TotalQuestions: &two}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("shrinking total below index err = %v", err)
	}
}

func TestUpdateConditional(t *testing.T) {
	h := newHarness()
	s := h.mustCreate("u")
	ctx := context.Background()
	title := "x"

	stale := s.UpdatedAt.Add(-time.Second)
	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Title: &title, IfUpdatedAt: &stale}); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("stale err = %v", err)
	}
	fresh := s.UpdatedAt
	if _, err := h.sessions.Update(ctx, s.ID, models.SessionPatch{Title: &title, IfUpdatedAt: &fresh}); err != nil {
		t.Errorf("fresh err = %v", err)
	}
}
