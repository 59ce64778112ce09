package chat

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"chatrelay/pkg/llm"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

type stubService struct {
	reply string
	err   error

	mu         sync.Mutex
	gotHistory []llm.Turn
	gotMessage string
	calls      int
}

func (s *stubService) Reply(ctx context.Context, history []llm.Turn, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotHistory = append([]llm.Turn{}, history...)
	s.gotMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func openStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func seedUser(t *testing.T, id string, chats []models.ChatMessage) {
	t.Helper()
	if err := store.SaveUser(models.User{ID: id, Chats: chats}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestSubmitTurnAppendsPair(t *testing.T) {
	openStore(t)
	seedUser(t, "alice", []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}})

	svc := &stubService{reply: "I'm fine"}
	orc := New(svc)

	got, err := orc.SubmitTurn(context.Background(), "alice", "how are you")
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	want := []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleUser, Content: "how are you"},
		{Role: models.RoleAssistant, Content: "I'm fine"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("returned sequence mismatch:\n got  %+v\n want %+v", got, want)
	}

	// model saw strictly the prior turns, not the in-flight message
	wantHist := []llm.Turn{{Role: llm.RoleUser, Text: "hi"}}
	if !reflect.DeepEqual(svc.gotHistory, wantHist) {
		t.Fatalf("history passed to model mismatch: got %+v want %+v", svc.gotHistory, wantHist)
	}
	if svc.gotMessage != "how are you" {
		t.Fatalf("message passed to model: got %q", svc.gotMessage)
	}

	// stored sequence matches the returned one
	u, err := store.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !reflect.DeepEqual(u.Chats, want) {
		t.Fatalf("stored sequence mismatch: got %+v", u.Chats)
	}
}

func TestSubmitTurnExportsModelVocabulary(t *testing.T) {
	openStore(t)
	seedUser(t, "bob", []models.ChatMessage{
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
	})

	svc := &stubService{reply: "a2"}
	orc := New(svc)
	if _, err := orc.SubmitTurn(context.Background(), "bob", "q2"); err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	want := []llm.Turn{
		{Role: llm.RoleUser, Text: "q1"},
		{Role: llm.RoleModel, Text: "a1"},
	}
	if !reflect.DeepEqual(svc.gotHistory, want) {
		t.Fatalf("exported history mismatch: got %+v want %+v", svc.gotHistory, want)
	}
}

func TestSubmitTurnUnknownUser(t *testing.T) {
	openStore(t)
	svc := &stubService{reply: "x"}
	orc := New(svc)

	_, err := orc.SubmitTurn(context.Background(), "ghost", "hello")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if svc.calls != 0 {
		t.Fatalf("model must not be called for unknown users, got %d calls", svc.calls)
	}
}

func TestSubmitTurnModelFailureLeavesStoreUntouched(t *testing.T) {
	openStore(t)
	before := []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}
	seedUser(t, "carol", before)

	svc := &stubService{err: errors.New("quota exceeded")}
	orc := New(svc)

	_, err := orc.SubmitTurn(context.Background(), "carol", "anyone there?")
	if !errors.Is(err, ErrModelService) {
		t.Fatalf("expected ErrModelService, got %v", err)
	}

	u, gerr := store.GetUser("carol")
	if gerr != nil {
		t.Fatalf("GetUser: %v", gerr)
	}
	if !reflect.DeepEqual(u.Chats, before) {
		t.Fatalf("stored history changed on failed turn: got %+v want %+v", u.Chats, before)
	}
}

func TestHistoryAndClear(t *testing.T) {
	openStore(t)
	seedUser(t, "dave", []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	})
	orc := New(&stubService{reply: "x"})

	got, err := orc.History(context.Background(), "dave")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}

	if err := orc.Clear(context.Background(), "dave"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err = orc.History(context.Background(), "dave")
	if err != nil {
		t.Fatalf("History after clear: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty sequence after clear, got %+v", got)
	}
}

func TestHistoryUnknownUser(t *testing.T) {
	openStore(t)
	orc := New(&stubService{})

	if _, err := orc.History(context.Background(), "nobody"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("History: expected ErrNotAuthenticated, got %v", err)
	}
	if err := orc.Clear(context.Background(), "nobody"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Clear: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestConcurrentTurnsSameUserLoseNothing(t *testing.T) {
	openStore(t)
	seedUser(t, "erin", nil)

	svc := &stubService{reply: "ack"}
	orc := New(svc)

	const turns = 8
	done := make(chan error, turns)
	for i := 0; i < turns; i++ {
		go func() {
			_, err := orc.SubmitTurn(context.Background(), "erin", "msg")
			done <- err
		}()
	}
	for i := 0; i < turns; i++ {
		if err := <-done; err != nil {
			t.Fatalf("SubmitTurn: %v", err)
		}
	}

	u, err := store.GetUser("erin")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(u.Chats) != turns*2 {
		t.Fatalf("expected %d stored messages, got %d", turns*2, len(u.Chats))
	}
}
