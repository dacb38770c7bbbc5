package booking

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/model"
)

func TestSession_Flow(t *testing.T) {
	api := &fakeAPI{
		doctor: mondayDoctor(),
		booked: map[string][]model.Appointment{"2026-01-05": {{StartTime: "10:00:00"}}},
	}
	svc := newTestService(api, Options{})
	store := NewStore(time.Minute)
	sess := store.Create()
	ctx := context.Background()

	v, err := svc.SelectDoctor(ctx, sess, "7")
	if err != nil {
		t.Fatalf("select doctor: %v", err)
	}
	if v.DoctorID != "7" || len(v.Dates) != 5 || len(v.Slots) != 0 || v.FullyBooked {
		t.Fatalf("unexpected view after doctor: %+v", v)
	}

	v, err = svc.SelectDate(ctx, sess, "2026-01-05")
	if err != nil {
		t.Fatalf("select date: %v", err)
	}
	if !reflect.DeepEqual(v.Slots, []string{"09:00", "11:00"}) {
		t.Fatalf("unexpected slots: %v", v.Slots)
	}

	v, err = svc.SelectTime(ctx, sess, "11:00")
	if err != nil {
		t.Fatalf("select time: %v", err)
	}
	if v.Quote == nil || v.Quote.Fee != 500 || v.Quote.EndTime != "12:00" {
		t.Fatalf("unexpected quote: %+v", v.Quote)
	}

	doctorCalls := api.doctorCalls
	if _, err := svc.Confirm(ctx, sess, "", ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	conf, err := svc.Confirm(ctx, sess, "42", "req-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if conf.Quote.Fee != 500 || len(api.creates) != 1 {
		t.Fatalf("unexpected confirmation: %+v", conf)
	}
	if api.doctorCalls != doctorCalls {
		t.Fatalf("confirm should reuse the selected doctor")
	}
	if after := sess.View(); after.Date != "" || after.StartTime != "" || after.DoctorID != "7" {
		t.Fatalf("expected selection cleared after booking, got %+v", after)
	}
}

func TestSession_DateChangeClearsTime(t *testing.T) {
	svc := newTestService(&fakeAPI{doctor: mondayDoctor()}, Options{})
	sess := NewStore(time.Minute).Create()
	ctx := context.Background()

	if _, err := svc.SelectDate(ctx, sess, "2026-01-05"); !errors.Is(err, ErrNoDoctor) {
		t.Fatalf("expected no doctor error, got %v", err)
	}
	_, _ = svc.SelectDoctor(ctx, sess, "7")
	_, _ = svc.SelectDate(ctx, sess, "2026-01-05")
	_, _ = svc.SelectTime(ctx, sess, "09:00")

	v, err := svc.SelectDate(ctx, sess, "2026-01-12")
	if err != nil {
		t.Fatalf("select date: %v", err)
	}
	if v.StartTime != "" || v.Quote != nil {
		t.Fatalf("expected time cleared, got %+v", v)
	}
	if _, err := svc.Confirm(ctx, sess, "42", ""); !errors.Is(err, ErrSelectionIncomplete) {
		t.Fatalf("expected incomplete selection, got %v", err)
	}
}

func TestSession_ClearedDateSkipsFetch(t *testing.T) {
	api := &fakeAPI{doctor: mondayDoctor()}
	svc := newTestService(api, Options{})
	sess := NewStore(time.Minute).Create()
	ctx := context.Background()
	_, _ = svc.SelectDoctor(ctx, sess, "7")

	v, err := svc.SelectDate(ctx, sess, "")
	if err != nil {
		t.Fatalf("clear date: %v", err)
	}
	if api.bookedCalls != 0 {
		t.Fatalf("expected no booked-slot fetch, got %d", api.bookedCalls)
	}
	if v.Date != "" || v.FullyBooked {
		t.Fatalf("unexpected view: %+v", v)
	}
	if _, err := svc.SelectTime(ctx, sess, "09:00"); !errors.Is(err, ErrSelectionIncomplete) {
		t.Fatalf("expected selection error, got %v", err)
	}
}

func TestSession_LatestDateWins(t *testing.T) {
	api := &fakeAPI{
		doctor:  mondayDoctor(),
		booked:  map[string][]model.Appointment{"2026-01-12": {{StartTime: "09:00"}}},
		block:   map[string]chan struct{}{"2026-01-05": make(chan struct{})},
		started: make(chan string, 2),
	}
	svc := newTestService(api, Options{})
	sess := NewStore(time.Minute).Create()
	ctx := context.Background()
	_, _ = svc.SelectDoctor(ctx, sess, "7")

	stale := make(chan error, 1)
	go func() {
		_, err := svc.SelectDate(ctx, sess, "2026-01-05")
		stale <- err
	}()
	if got := <-api.started; got != "2026-01-05" {
		t.Fatalf("unexpected first fetch: %s", got)
	}

	v, err := svc.SelectDate(ctx, sess, "2026-01-12")
	if err != nil {
		t.Fatalf("select newer date: %v", err)
	}
	<-api.started

	select {
	case err := <-stale:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("expected stale fetch to be superseded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stale fetch was not cancelled")
	}

	if v.Date != "2026-01-12" || !reflect.DeepEqual(v.Slots, []string{"10:00", "11:00"}) {
		t.Fatalf("unexpected view: %+v", v)
	}
	if cur := sess.View(); cur.Date != "2026-01-12" || !reflect.DeepEqual(cur.Slots, v.Slots) {
		t.Fatalf("stale result leaked into session: %+v", cur)
	}
}

func TestStore_IdleExpiry(t *testing.T) {
	store := NewStore(time.Minute)
	now := time.Date(2026, 1, 4, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	a := store.Create()
	b := store.Create()
	now = now.Add(45 * time.Second)
	if _, err := store.Get(a.ID); err != nil {
		t.Fatalf("get a: %v", err)
	}
	now = now.Add(30 * time.Second)
	if dropped := store.Sweep(); dropped != 1 {
		t.Fatalf("expected 1 idle session dropped, got %d", dropped)
	}
	if _, err := store.Get(b.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected b to be gone, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected a to expire on access, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	store := NewStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("run did not stop")
	}
}
