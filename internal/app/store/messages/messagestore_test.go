package messagestore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	conversationstore "github.com/dalemusser/campuslink/internal/app/store/conversations"
	messagestore "github.com/dalemusser/campuslink/internal/app/store/messages"
	notificationstore "github.com/dalemusser/campuslink/internal/app/store/notifications"
	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/docstore/memstore"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"github.com/dalemusser/campuslink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	mem     *memstore.Store
	threads *conversationstore.Store
	notes   *notificationstore.Store
	msgs    *messagestore.Store
	thread  *models.Conversation
}

func setup(t *testing.T, ctx context.Context) *env {
	t.Helper()
	mem := memstore.New()
	fx := testutil.NewFixtures(t, mem)
	fx.CreateUser(ctx, "u1", "Ada")
	fx.CreateUser(ctx, "u2", "Grace")
	fx.CreateUser(ctx, "u3", "Linus")

	users := userstore.New(mem)
	threads := conversationstore.New(mem, users, zap.NewNop())
	notes := notificationstore.New(mem, zap.NewNop())
	msgs := messagestore.New(mem, threads, users, zap.NewNop())

	thread, err := threads.Ensure(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	return &env{mem: mem, threads: threads, notes: notes, msgs: msgs, thread: thread}
}

func waitFor[T any](t *testing.T, ctx context.Context, f *live.Feed[T], pred func(T) bool) T {
	t.Helper()
	for {
		v, ok := f.Next(ctx)
		if !ok {
			t.Fatal("feed ended before condition was met")
		}
		if pred(v) {
			return v
		}
	}
}

func TestSend_AppendsAndUpdatesThread(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	history := e.msgs.History(ctx, e.thread.ID)
	defer history.Close()
	waitFor(t, ctx, history, func(m []models.Message) bool { return len(m) == 0 })

	msg, err := e.msgs.Send(ctx, e.thread.ID, "u1", "  hello there  ")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.Text != "hello there" {
		t.Errorf("Text = %q, want trimmed", msg.Text)
	}
	if msg.Read {
		t.Error("new message should be unread")
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected a store timestamp")
	}
	if msg.SenderName != "Ada" {
		t.Errorf("SenderName = %q, want Ada", msg.SenderName)
	}

	got := waitFor(t, ctx, history, func(m []models.Message) bool { return len(m) == 1 })
	if got[0].ID != msg.ID {
		t.Errorf("history[0] = %s, want %s", got[0].ID, msg.ID)
	}

	thread, err := e.threads.Get(ctx, e.thread.ID)
	if err != nil {
		t.Fatalf("Get thread failed: %v", err)
	}
	if thread.LastMessage != "hello there" || thread.LastMessageSender != "u1" {
		t.Errorf("thread summary = %q from %q", thread.LastMessage, thread.LastMessageSender)
	}
	if thread.Unread("u2") != 1 || thread.Unread("u1") != 0 {
		t.Errorf("unread counts = %v", thread.UnreadCounts)
	}
}

func TestSend_StripsMarkup(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	msg, err := e.msgs.Send(ctx, e.thread.ID, "u2", "<b>hello</b> there")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.Text != "hello there" {
		t.Errorf("Text = %q, want %q", msg.Text, "hello there")
	}
}

func TestSend_RejectsEmpty(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	for _, text := range []string{"", "   ", "\n\t", "<p>  </p>"} {
		_, err := e.msgs.Send(ctx, e.thread.ID, "u1", text)
		if !errors.Is(err, apperr.ErrEmptyMessage) {
			t.Errorf("Send(%q) error = %v, want ErrEmptyMessage", text, err)
		}
	}
	if n := e.mem.Count(messagestore.Collection); n != 0 {
		t.Errorf("messages written = %d, want 0", n)
	}
	thread, _ := e.threads.Get(ctx, e.thread.ID)
	if thread.LastMessage != "" {
		t.Errorf("thread summary changed to %q", thread.LastMessage)
	}
}

func TestSend_ThreadMissing(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	_, err := e.msgs.Send(ctx, conversationstore.ThreadID("u1", "u3"), "u1", "hi")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestSend_NotParticipant(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	_, err := e.msgs.Send(ctx, e.thread.ID, "u3", "hi")
	if !errors.Is(err, apperr.ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestSend_BatchFailureWritesNothing(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	boom := errors.New("boom")
	e.mem.InjectFault(func(w docstore.Write) error {
		if w.Collection == conversationstore.Collection && w.Kind == docstore.WriteUpdate {
			return boom
		}
		return nil
	})

	_, err := e.msgs.Send(ctx, e.thread.ID, "u1", "hi")
	if !apperr.IsStore(err) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if n := e.mem.Count(messagestore.Collection); n != 0 {
		t.Errorf("messages written = %d, want 0", n)
	}
}

func TestSend_OrderedByTimestamp(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	senders := []string{"u1", "u2", "u1", "u1", "u2"}
	for i, s := range senders {
		if _, err := e.msgs.Send(ctx, e.thread.ID, s, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}

	history := e.msgs.History(ctx, e.thread.ID)
	defer history.Close()
	msgs := waitFor(t, ctx, history, func(m []models.Message) bool { return len(m) == len(senders) })
	for i := range msgs {
		if msgs[i].Text != fmt.Sprintf("m%d", i) {
			t.Errorf("history[%d] = %q", i, msgs[i].Text)
		}
		if i > 0 && !msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			t.Errorf("timestamps not increasing at %d", i)
		}
	}
}

func TestSend_NotifiesRecipient(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)
	e.msgs.WithFanout(e.notes)

	if _, err := e.msgs.Send(ctx, e.thread.ID, "u1", "ping"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	feed := e.notes.List(ctx, "u2", notificationstore.CategoryMessages)
	defer feed.Close()
	notes := waitFor(t, ctx, feed, func(n []models.Notification) bool { return len(n) == 1 })
	n := notes[0]
	if n.Type != models.NotifyMessage {
		t.Errorf("Type = %s", n.Type)
	}
	if n.Payload[models.PayloadThreadID] != e.thread.ID || n.Payload[models.PayloadSenderID] != "u1" {
		t.Errorf("payload = %v", n.Payload)
	}
	if n.Payload[models.PayloadPreview] != "ping" {
		t.Errorf("preview = %q", n.Payload[models.PayloadPreview])
	}
}

func TestMarkRead(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	for i := 0; i < 3; i++ {
		if _, err := e.msgs.Send(ctx, e.thread.ID, "u1", "from ada"); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	own, err := e.msgs.Send(ctx, e.thread.ID, "u2", "from grace")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	n, err := e.msgs.MarkRead(ctx, e.thread.ID, "u2")
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if n != 3 {
		t.Errorf("marked = %d, want 3", n)
	}

	n, err = e.msgs.MarkRead(ctx, e.thread.ID, "u2")
	if err != nil || n != 0 {
		t.Errorf("second MarkRead = %d, %v; want 0, nil", n, err)
	}

	thread, _ := e.threads.Get(ctx, e.thread.ID)
	if thread.Unread("u2") != 0 {
		t.Errorf("u2 unread = %d, want 0", thread.Unread("u2"))
	}
	if thread.Unread("u1") != 1 {
		t.Errorf("u1 unread = %d, want 1", thread.Unread("u1"))
	}

	m, err := e.msgs.Get(ctx, own.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if m.Read {
		t.Error("reader's own message should stay unread")
	}
}

func TestMarkRead_PartialFailureSelfHeals(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	for i := 0; i < 3; i++ {
		if _, err := e.msgs.Send(ctx, e.thread.ID, "u1", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	updates := 0
	e.mem.InjectFault(func(w docstore.Write) error {
		if w.Collection != messagestore.Collection || w.Kind != docstore.WriteUpdate {
			return nil
		}
		updates++
		if updates == 2 {
			return errors.New("boom")
		}
		return nil
	})

	n, err := e.msgs.MarkRead(ctx, e.thread.ID, "u2")
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if n != 2 {
		t.Errorf("marked = %d, want 2", n)
	}
	thread, _ := e.threads.Get(ctx, e.thread.ID)
	if thread.Unread("u2") != 1 {
		t.Errorf("u2 unread = %d, want 1", thread.Unread("u2"))
	}

	e.mem.InjectFault(nil)
	n, err = e.msgs.MarkRead(ctx, e.thread.ID, "u2")
	if err != nil || n != 1 {
		t.Errorf("retry MarkRead = %d, %v; want 1, nil", n, err)
	}
	thread, _ = e.threads.Get(ctx, e.thread.ID)
	if thread.Unread("u2") != 0 {
		t.Errorf("u2 unread = %d, want 0", thread.Unread("u2"))
	}
}

// sendAfterQuery runs send once, right after the first Query returns.
type sendAfterQuery struct {
	docstore.Store
	send func()
	done bool
}

func (s *sendAfterQuery) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	docs, err := s.Store.Query(ctx, q)
	if !s.done {
		s.done = true
		s.send()
	}
	return docs, err
}

func TestMarkRead_ConcurrentSendKeepsCount(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	for i := 0; i < 2; i++ {
		if _, err := e.msgs.Send(ctx, e.thread.ID, "u1", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	var late *models.Message
	docs := &sendAfterQuery{Store: e.mem, send: func() {
		m, err := e.msgs.Send(ctx, e.thread.ID, "u1", "late")
		if err != nil {
			t.Errorf("late Send failed: %v", err)
			return
		}
		late = m
	}}
	users := userstore.New(e.mem)
	reader := messagestore.New(docs, conversationstore.New(e.mem, users, zap.NewNop()), users, zap.NewNop())

	n, err := reader.MarkRead(ctx, e.thread.ID, "u2")
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if n != 2 {
		t.Errorf("marked = %d, want 2", n)
	}
	thread, _ := e.threads.Get(ctx, e.thread.ID)
	if thread.Unread("u2") != 1 {
		t.Errorf("u2 unread = %d, want 1 for the message sent mid-call", thread.Unread("u2"))
	}
	if late == nil {
		t.Fatal("late message was not sent")
	}
	if m, _ := e.msgs.Get(ctx, late.ID); m == nil || m.Read {
		t.Error("message sent mid-call should stay unread")
	}
}

func TestMarkRead_OverlappingCallsCountOnce(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	for i := 0; i < 3; i++ {
		if _, err := e.msgs.Send(ctx, e.thread.ID, "u1", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	// A second MarkRead runs between the first call's query and its writes,
	// so every message the first call saw is already read.
	var inner int
	docs := &sendAfterQuery{Store: e.mem, send: func() {
		n, err := e.msgs.MarkRead(ctx, e.thread.ID, "u2")
		if err != nil {
			t.Errorf("inner MarkRead failed: %v", err)
		}
		inner = n
	}}
	users := userstore.New(e.mem)
	outer := messagestore.New(docs, conversationstore.New(e.mem, users, zap.NewNop()), users, zap.NewNop())

	n, err := outer.MarkRead(ctx, e.thread.ID, "u2")
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if inner != 3 || n != 0 {
		t.Errorf("marked inner=%d outer=%d, want 3 and 0", inner, n)
	}
	thread, _ := e.threads.Get(ctx, e.thread.ID)
	if thread.Unread("u2") != 0 {
		t.Errorf("u2 unread = %d, want 0", thread.Unread("u2"))
	}
}

func TestMarkRead_Errors(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	if _, err := e.msgs.MarkRead(ctx, "missing", "u1"); !apperr.IsNotFound(err) {
		t.Errorf("missing thread: expected NotFound, got %v", err)
	}
	if _, err := e.msgs.MarkRead(ctx, e.thread.ID, "u3"); !errors.Is(err, apperr.ErrNotParticipant) {
		t.Errorf("outsider: expected ErrNotParticipant, got %v", err)
	}
}

func TestPage(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	for i := 1; i <= 7; i++ {
		if _, err := e.msgs.Send(ctx, e.thread.ID, "u1", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	var texts []string
	before := ""
	pages := 0
	for {
		page, err := e.msgs.Page(ctx, e.thread.ID, before, 3)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		pages++
		for _, m := range page.Messages {
			texts = append(texts, m.Text)
		}
		if !page.HasMore {
			if page.Next != "" {
				t.Error("last page should have no cursor")
			}
			break
		}
		before = page.Next
		if pages > 5 {
			t.Fatal("paging did not terminate")
		}
	}

	want := []string{"m7", "m6", "m5", "m4", "m3", "m2", "m1"}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if fmt.Sprint(texts) != fmt.Sprint(want) {
		t.Errorf("texts = %v, want %v", texts, want)
	}
}

func TestPage_SharedTimestamp(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var want []string
	for i := 0; i < 5; i++ {
		m := models.Message{
			ID:        primitive.NewObjectID().Hex(),
			ThreadID:  e.thread.ID,
			SenderID:  "u1",
			Text:      fmt.Sprintf("m%d", i),
			Timestamp: at,
		}
		if err := e.mem.Put(ctx, messagestore.Collection, m.ID, m); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		want = append([]string{m.ID}, want...)
	}
	older := models.Message{ID: primitive.NewObjectID().Hex(), ThreadID: e.thread.ID, SenderID: "u1", Text: "older", Timestamp: at.Add(-time.Second)}
	if err := e.mem.Put(ctx, messagestore.Collection, older.ID, older); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	want = append(want, older.ID)

	var got []string
	before := ""
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("paging did not terminate")
		}
		page, err := e.msgs.Page(ctx, e.thread.ID, before, 2)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		for _, m := range page.Messages {
			got = append(got, m.ID)
		}
		if !page.HasMore {
			break
		}
		before = page.Next
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestPage_BadCursor(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := setup(t, ctx)

	_, err := e.msgs.Page(ctx, e.thread.ID, "not a cursor", 10)
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
