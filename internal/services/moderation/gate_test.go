package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
)

const (
	authorID    = "0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d"
	moderatorID = "5c4b3a29-1807-4f6e-8d5c-4b3a29180706"
	commentID   = "c0c0c0c0-1111-4222-8333-444444444444"
)

var fixedNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

// memoryDB applies writes to maps and restores a snapshot when the
// transaction callback fails.
type memoryDB struct {
	offers   map[string]model.Offer
	logs     []model.ModerationLogEntry
	comments map[string]model.Comment
	failLog  bool
}

func newMemoryDB() *memoryDB {
	return &memoryDB{offers: map[string]model.Offer{}, comments: map[string]model.Comment{}}
}

func (db *memoryDB) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	offers := make(map[string]model.Offer, len(db.offers))
	for k, v := range db.offers {
		offers[k] = v
	}
	comments := make(map[string]model.Comment, len(db.comments))
	for k, v := range db.comments {
		comments[k] = v
	}
	logs := append([]model.ModerationLogEntry(nil), db.logs...)

	if err := fn(ctx, nil); err != nil {
		db.offers, db.comments, db.logs = offers, comments, logs
		return err
	}
	return nil
}

func (db *memoryDB) Create(_ context.Context, _ pgx.Tx, offer model.Offer) error {
	db.offers[offer.ID] = offer
	return nil
}

func (db *memoryDB) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (model.Offer, error) {
	offer, ok := db.offers[id]
	if !ok {
		return model.Offer{}, pgrepo.ErrOfferNotFound
	}
	return offer, nil
}

func (db *memoryDB) UpdateStatus(_ context.Context, _ pgx.Tx, id string, status enums.OfferStatus, expiresAt *time.Time, now time.Time) error {
	offer, ok := db.offers[id]
	if !ok {
		return pgrepo.ErrOfferNotFound
	}
	offer.Status = status
	offer.ExpiresAt = expiresAt
	offer.UpdatedAt = now
	db.offers[id] = offer
	return nil
}

type logStore struct{ db *memoryDB }

func (s logStore) Append(_ context.Context, _ pgx.Tx, entry model.ModerationLogEntry) error {
	if s.db.failLog {
		return errors.New("insert failed")
	}
	s.db.logs = append(s.db.logs, entry)
	return nil
}

type commentStore struct{ db *memoryDB }

func (s commentStore) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (model.Comment, error) {
	c, ok := s.db.comments[id]
	if !ok {
		return model.Comment{}, pgrepo.ErrCommentNotFound
	}
	return c, nil
}

func (s commentStore) UpdateStatus(_ context.Context, _ pgx.Tx, id string, status enums.ModerationStatus, reason string, now time.Time) error {
	c := s.db.comments[id]
	c.Status = status
	c.Reason = reason
	c.UpdatedAt = now
	s.db.comments[id] = c
	return nil
}

type schedulerStub struct{ users []string }

func (s *schedulerStub) Schedule(userID string) { s.users = append(s.users, userID) }

func newTestGate(db *memoryDB, sched *schedulerStub) *Gate {
	g := NewGate(Dependencies{
		Tx:         db,
		Offers:     db,
		Logs:       logStore{db},
		Comments:   commentStore{db},
		Reputation: sched,
	}, Config{OfferVisibility: 7 * 24 * time.Hour})
	g.now = func() time.Time { return fixedNow }
	return g
}

func seedOffer(db *memoryDB, id string, status enums.OfferStatus, expiresAt *time.Time) {
	db.offers[id] = model.Offer{ID: id, CreatedBy: authorID, Status: status, ExpiresAt: expiresAt}
}

func TestSubmitStatusFollowsAuthorLevel(t *testing.T) {
	db := newMemoryDB()
	sched := &schedulerStub{}
	gate := newTestGate(db, sched)
	ctx := context.Background()

	pending, err := gate.Submit(ctx, model.Offer{Title: "TV", Store: "shop", CreatedBy: authorID}, 1)
	if err != nil {
		t.Fatalf("submit level 1: %v", err)
	}
	if pending.Status != enums.OfferStatusPending || pending.ExpiresAt != nil {
		t.Fatalf("level 1 offer must be pending without expiry, got %s %v", pending.Status, pending.ExpiresAt)
	}
	if len(db.logs) != 0 || len(sched.users) != 0 {
		t.Fatalf("pending submission must not log or recompute")
	}

	approved, err := gate.Submit(ctx, model.Offer{Title: "Laptop", Store: "shop", CreatedBy: authorID}, 3)
	if err != nil {
		t.Fatalf("submit level 3: %v", err)
	}
	if approved.Status != enums.OfferStatusApproved {
		t.Fatalf("level 3 offer must be approved, got %s", approved.Status)
	}
	if approved.ExpiresAt == nil || !approved.ExpiresAt.Equal(fixedNow.Add(7*24*time.Hour)) {
		t.Fatalf("expected 7 day expiry, got %v", approved.ExpiresAt)
	}
	if len(db.logs) != 1 {
		t.Fatalf("expected one auto-approve log row, got %d", len(db.logs))
	}
	entry := db.logs[0]
	if entry.Action != enums.ModerationActionAutoApprove || entry.ModeratorID != nil || entry.PreviousStatus != nil {
		t.Fatalf("unexpected auto-approve entry: %+v", entry)
	}
	if stored := db.offers[approved.ID]; stored.Status != enums.OfferStatusApproved {
		t.Fatalf("offer not persisted as approved: %+v", stored)
	}
	if len(sched.users) != 1 || sched.users[0] != authorID {
		t.Fatalf("expected author recompute, got %v", sched.users)
	}
}

func TestDecideRejectWithoutReasonHasNoEffect(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	id := "11111111-0000-4000-8000-000000000001"
	seedOffer(db, id, enums.OfferStatusPending, nil)

	for _, reason := range []string{"", "   "} {
		_, err := gate.Decide(context.Background(), id, moderatorID, enums.OfferStatusRejected, reason)
		if !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	}
	if len(db.logs) != 0 {
		t.Fatalf("expected no moderation log entry, got %d", len(db.logs))
	}
	if db.offers[id].Status != enums.OfferStatusPending {
		t.Fatalf("offer status must be unchanged")
	}
}

func TestDecideApproveStampsExpiryAndLogs(t *testing.T) {
	db := newMemoryDB()
	sched := &schedulerStub{}
	gate := newTestGate(db, sched)
	id := "11111111-0000-4000-8000-000000000002"
	seedOffer(db, id, enums.OfferStatusPending, nil)

	tr, err := gate.Decide(context.Background(), id, moderatorID, enums.OfferStatusApproved, "")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if tr.Status != enums.OfferStatusApproved || tr.PreviousStatus != enums.OfferStatusPending {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if tr.ExpiresAt == nil || !tr.ExpiresAt.Equal(fixedNow.Add(7*24*time.Hour)) {
		t.Fatalf("approve must stamp expiry, got %v", tr.ExpiresAt)
	}
	if len(db.logs) != 1 || *db.logs[0].ModeratorID != moderatorID || *db.logs[0].PreviousStatus != enums.OfferStatusPending {
		t.Fatalf("unexpected log rows: %+v", db.logs)
	}
	if len(sched.users) != 1 {
		t.Fatalf("expected author recompute after decision")
	}
}

func TestDecideApproveKeepsExistingExpiry(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	id := "11111111-0000-4000-8000-000000000003"
	existing := fixedNow.Add(48 * time.Hour)
	seedOffer(db, id, enums.OfferStatusPending, &existing)

	tr, err := gate.Decide(context.Background(), id, moderatorID, enums.OfferStatusApproved, "")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !tr.ExpiresAt.Equal(existing) {
		t.Fatalf("existing expiry must be kept, got %v", tr.ExpiresAt)
	}
}

func TestDecideRejectResolvesReasonCode(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	id := "11111111-0000-4000-8000-000000000004"
	seedOffer(db, id, enums.OfferStatusApproved, nil)

	if _, err := gate.Decide(context.Background(), id, moderatorID, enums.OfferStatusRejected, "duplicate"); err != nil {
		t.Fatalf("takedown: %v", err)
	}
	if db.offers[id].Status != enums.OfferStatusRejected {
		t.Fatalf("approved offer must be taken down")
	}
	if db.logs[0].Reason != rejectReasonTemplates["DUPLICATE"].ReasonText {
		t.Fatalf("unexpected stored reason %q", db.logs[0].Reason)
	}
}

func TestTerminalStatusesAreNotResurrected(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	rejected := "11111111-0000-4000-8000-000000000005"
	expired := "11111111-0000-4000-8000-000000000006"
	seedOffer(db, rejected, enums.OfferStatusRejected, nil)
	seedOffer(db, expired, enums.OfferStatusExpired, nil)

	for _, id := range []string{rejected, expired} {
		if _, err := gate.Decide(context.Background(), id, moderatorID, enums.OfferStatusApproved, ""); !errors.Is(err, errs.ErrConflict) {
			t.Fatalf("expected conflict for %s, got %v", id, err)
		}
	}
	if len(db.logs) != 0 {
		t.Fatalf("rejected transitions must not be logged")
	}
}

func TestExpireOnlyFromApproved(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	approved := "11111111-0000-4000-8000-000000000007"
	pending := "11111111-0000-4000-8000-000000000008"
	seedOffer(db, approved, enums.OfferStatusApproved, nil)
	seedOffer(db, pending, enums.OfferStatusPending, nil)

	tr, err := gate.Expire(context.Background(), approved, nil)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if tr.Status != enums.OfferStatusExpired || db.logs[0].ModeratorID != nil {
		t.Fatalf("unexpected system expiry: %+v %+v", tr, db.logs[0])
	}

	if _, err := gate.Expire(context.Background(), pending, nil); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict expiring a pending offer, got %v", err)
	}
}

func TestDecideUnknownOffer(t *testing.T) {
	gate := newTestGate(newMemoryDB(), &schedulerStub{})
	_, err := gate.Decide(context.Background(), "11111111-0000-4000-8000-0000000000ff", moderatorID, enums.OfferStatusApproved, "")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecideRollsBackWhenLogFails(t *testing.T) {
	db := newMemoryDB()
	sched := &schedulerStub{}
	gate := newTestGate(db, sched)
	id := "11111111-0000-4000-8000-000000000009"
	seedOffer(db, id, enums.OfferStatusPending, nil)
	db.failLog = true

	_, err := gate.Decide(context.Background(), id, moderatorID, enums.OfferStatusApproved, "")
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if db.offers[id].Status != enums.OfferStatusPending {
		t.Fatalf("status change must roll back with the failed log write")
	}
	if len(sched.users) != 0 {
		t.Fatalf("failed decision must not trigger recompute")
	}
}

func TestBatchApprovePartialFailureKeepsSuccesses(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	first := "22222222-0000-4000-8000-000000000001"
	terminal := "22222222-0000-4000-8000-000000000002"
	last := "22222222-0000-4000-8000-000000000003"
	seedOffer(db, first, enums.OfferStatusPending, nil)
	seedOffer(db, terminal, enums.OfferStatusRejected, nil)
	seedOffer(db, last, enums.OfferStatusPending, nil)

	res, err := gate.BatchApprove(context.Background(), []string{first, terminal, "not-a-uuid", last}, moderatorID)
	if err != nil {
		t.Fatalf("batch approve: %v", err)
	}
	if res.Succeeded != 2 || res.Failed != 2 || len(res.Items) != 4 {
		t.Fatalf("unexpected batch result: %+v", res)
	}
	if !errors.Is(res.Items[1].Err, errs.ErrConflict) || !errors.Is(res.Items[2].Err, errs.ErrInvalidArgument) {
		t.Fatalf("unexpected item errors: %v / %v", res.Items[1].Err, res.Items[2].Err)
	}
	if db.offers[first].Status != enums.OfferStatusApproved || db.offers[last].Status != enums.OfferStatusApproved {
		t.Fatalf("successful items must stay applied")
	}
	if len(db.logs) != 2 || db.logs[0].OfferID != first || db.logs[1].OfferID != last {
		t.Fatalf("expected one log row per successful offer, got %+v", db.logs)
	}
}

func TestBatchRejectRequiresReason(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	id := "22222222-0000-4000-8000-000000000004"
	seedOffer(db, id, enums.OfferStatusPending, nil)

	if _, err := gate.BatchReject(context.Background(), []string{id}, moderatorID, " "); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if len(db.logs) != 0 {
		t.Fatalf("no log rows expected")
	}

	res, err := gate.BatchReject(context.Background(), []string{id}, moderatorID, "spam")
	if err != nil || res.Succeeded != 1 {
		t.Fatalf("batch reject: %+v %v", res, err)
	}
}

func TestBatchExpireLogsEachOffer(t *testing.T) {
	db := newMemoryDB()
	gate := newTestGate(db, &schedulerStub{})
	ids := []string{
		"33333333-0000-4000-8000-000000000001",
		"33333333-0000-4000-8000-000000000002",
		"33333333-0000-4000-8000-000000000003",
	}
	for _, id := range ids {
		seedOffer(db, id, enums.OfferStatusApproved, nil)
	}

	res, err := gate.BatchExpire(context.Background(), ids, nil)
	if err != nil {
		t.Fatalf("batch expire: %v", err)
	}
	if res.Succeeded != 3 || len(db.logs) != 3 {
		t.Fatalf("expected 3 expiries and 3 log rows, got %+v / %d", res, len(db.logs))
	}
	for _, entry := range db.logs {
		if entry.Action != enums.ModerationActionExpire {
			t.Fatalf("unexpected action %s", entry.Action)
		}
	}
}

func TestBatchValidation(t *testing.T) {
	gate := newTestGate(newMemoryDB(), &schedulerStub{})
	if _, err := gate.BatchApprove(context.Background(), nil, moderatorID); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty batch, got %v", err)
	}
	tooMany := make([]string, maxBatchSize+1)
	if _, err := gate.BatchExpire(context.Background(), tooMany, nil); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for oversized batch, got %v", err)
	}
}

func TestDecideComment(t *testing.T) {
	db := newMemoryDB()
	sched := &schedulerStub{}
	gate := newTestGate(db, sched)
	db.comments[commentID] = model.Comment{ID: commentID, CreatedBy: authorID, Status: enums.ModerationStatusPending}

	if _, err := gate.DecideComment(context.Background(), commentID, moderatorID, enums.ModerationStatusRejected, ""); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	c, err := gate.DecideComment(context.Background(), commentID, moderatorID, enums.ModerationStatusApproved, "")
	if err != nil {
		t.Fatalf("approve comment: %v", err)
	}
	if c.Status != enums.ModerationStatusApproved || db.comments[commentID].Status != enums.ModerationStatusApproved {
		t.Fatalf("comment not approved: %+v", c)
	}
	if len(sched.users) != 1 || sched.users[0] != authorID {
		t.Fatalf("expected comment author recompute, got %v", sched.users)
	}
	if len(db.logs) != 0 {
		t.Fatalf("comment decisions are not written to the offer audit trail")
	}
}

func TestCommentStatus(t *testing.T) {
	if CommentStatus(1) != enums.ModerationStatusPending || CommentStatus(2) != enums.ModerationStatusApproved {
		t.Fatalf("comment auto-approval must start at level 2")
	}
}
