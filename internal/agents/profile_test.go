package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/types"
)

type extractorAI struct {
	decoded map[string]any
	err     error
}

func (f *extractorAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *extractorAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *extractorAI) GenerateJSON(ctx context.Context, system, user, name string, schema map[string]any) (map[string]any, error) {
	return f.decoded, f.err
}

type fakeProfileRepo struct {
	entries map[string]*types.ProfileEntry
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{entries: map[string]*types.ProfileEntry{}}
}

func (f *fakeProfileRepo) key(userID, label string) string { return userID + "|" + label }

func (f *fakeProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, userID, label, value string) (*types.ProfileEntry, error) {
	if existing, ok := f.entries[f.key(userID, label)]; ok {
		existing.Value = value
		existing.UpdatedAt = time.Now()
		return existing, nil
	}
	entry := &types.ProfileEntry{UserID: userID, Label: label, Value: value}
	f.entries[f.key(userID, label)] = entry
	return entry, nil
}

func (f *fakeProfileRepo) List(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.ProfileEntry, error) {
	var out []*types.ProfileEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) Get(ctx context.Context, tx *gorm.DB, userID, label string) (*types.ProfileEntry, error) {
	if e, ok := f.entries[f.key(userID, label)]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestProfileAgent(t *testing.T, ai *extractorAI, repo *fakeProfileRepo) Agent {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewProfileAgent(log, ai, repo, nil)
}

func TestProfileSetStoresPreference(t *testing.T) {
	repo := newFakeProfileRepo()
	ai := &extractorAI{decoded: map[string]any{
		"action": "set", "label": "Dietary Preference", "value": "vegetarian",
	}}
	a := newTestProfileAgent(t, ai, repo)

	reply, err := a.Execute(context.Background(), Request{UserID: "u1", Message: "I'm vegetarian"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(reply.Text, "vegetarian") {
		t.Fatalf("expected confirmation, got %q", reply.Text)
	}
	entry := repo.entries["u1|dietary preference"]
	if entry == nil || entry.Value != "vegetarian" {
		t.Fatalf("expected lowercased label stored, have %+v", repo.entries)
	}
}

func TestProfileSetOverwritesExistingLabel(t *testing.T) {
	repo := newFakeProfileRepo()
	a := newTestProfileAgent(t, &extractorAI{decoded: map[string]any{
		"action": "set", "label": "home city", "value": "Austin",
	}}, repo)
	if _, err := a.Execute(context.Background(), Request{UserID: "u1", Message: "I live in Austin"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a = newTestProfileAgent(t, &extractorAI{decoded: map[string]any{
		"action": "set", "label": "home city", "value": "Denver",
	}}, repo)
	if _, err := a.Execute(context.Background(), Request{UserID: "u1", Message: "I moved to Denver"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(repo.entries) != 1 {
		t.Fatalf("expected one row per label, got %d", len(repo.entries))
	}
	if repo.entries["u1|home city"].Value != "Denver" {
		t.Fatalf("expected latest value to win, got %q", repo.entries["u1|home city"].Value)
	}
}

func TestProfileGetUnknownLabel(t *testing.T) {
	a := newTestProfileAgent(t, &extractorAI{decoded: map[string]any{
		"action": "get", "label": "shoe size", "value": "",
	}}, newFakeProfileRepo())

	reply, err := a.Execute(context.Background(), Request{UserID: "u1", Message: "what's my shoe size?"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(reply.Text, "don't have anything") {
		t.Fatalf("expected miss reply, got %q", reply.Text)
	}
}

func TestProfileListEmptyAndPopulated(t *testing.T) {
	repo := newFakeProfileRepo()
	listAI := &extractorAI{decoded: map[string]any{"action": "list", "label": "", "value": ""}}
	a := newTestProfileAgent(t, listAI, repo)
	ctx := context.Background()

	reply, err := a.Execute(ctx, Request{UserID: "u1", Message: "what do you know about me?"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(reply.Text, "any preferences") {
		t.Fatalf("expected empty reply, got %q", reply.Text)
	}

	repo.Upsert(ctx, nil, "u1", "wake-up time", "6am")
	reply, err = a.Execute(ctx, Request{UserID: "u1", Message: "what do you know about me?"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(reply.Text, "wake-up time: 6am") {
		t.Fatalf("expected entry listed, got %q", reply.Text)
	}
}

func TestProfileIncompleteExtractionDelegates(t *testing.T) {
	a := newTestProfileAgent(t, &extractorAI{decoded: map[string]any{
		"action": "set", "label": "", "value": "",
	}}, newFakeProfileRepo())

	reply, err := a.Execute(context.Background(), Request{UserID: "u1", Message: "hmm"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reply.Delegate != NameGeneral {
		t.Fatalf("expected delegation to general, got %+v", reply)
	}
}
