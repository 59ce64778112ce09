package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	got  []llms.MessageContent
	resp *llms.ContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func textOf(t *testing.T, mc llms.MessageContent) string {
	t.Helper()
	if len(mc.Parts) != 1 {
		t.Fatalf("expected single part, got %d", len(mc.Parts))
	}
	tp, ok := mc.Parts[0].(llms.TextContent)
	if !ok {
		t.Fatalf("expected text part, got %T", mc.Parts[0])
	}
	return tp.Text
}

func TestGoogleAIReplyMapsRoles(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "fine, thanks"}},
	}}
	g := &GoogleAI{model: fake, name: DefaultModel}

	history := []Turn{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleModel, Text: "hello"},
	}
	out, err := g.Reply(context.Background(), history, "how are you")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if out != "fine, thanks" {
		t.Fatalf("reply: got %q", out)
	}

	if len(fake.got) != 3 {
		t.Fatalf("expected 3 messages sent, got %d", len(fake.got))
	}
	wantTypes := []llms.ChatMessageType{
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeHuman,
	}
	wantTexts := []string{"hi", "hello", "how are you"}
	for i, mc := range fake.got {
		if mc.Role != wantTypes[i] {
			t.Fatalf("message %d role: got %q want %q", i, mc.Role, wantTypes[i])
		}
		if got := textOf(t, mc); got != wantTexts[i] {
			t.Fatalf("message %d text: got %q want %q", i, got, wantTexts[i])
		}
	}
}

func TestGoogleAIReplyNoChoices(t *testing.T) {
	g := &GoogleAI{model: &fakeModel{resp: &llms.ContentResponse{}}, name: DefaultModel}
	if _, err := g.Reply(context.Background(), nil, "hi"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestGoogleAIReplyPropagatesError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	g := &GoogleAI{model: &fakeModel{err: wantErr}, name: DefaultModel}
	if _, err := g.Reply(context.Background(), nil, "hi"); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestNewGoogleAIRequiresKey(t *testing.T) {
	if _, err := NewGoogleAI(context.Background(), "", "", 0); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}

func TestEchoReply(t *testing.T) {
	e := &Echo{}
	out, err := e.Reply(context.Background(), []Turn{{Role: RoleUser, Text: "a"}}, "hello")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty echo reply")
	}
}

func TestEchoReplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Echo{}
	if _, err := e.Reply(ctx, nil, "hello"); err == nil {
		t.Fatalf("expected context error")
	}
}
