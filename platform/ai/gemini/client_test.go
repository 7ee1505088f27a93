package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGenerateTextJoinsParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(" Positive ", "", "again")}
	client := newClient(models, "")

	got, err := client.GenerateText(context.Background(), "label it", "great work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Positive\nagain" {
		t.Fatalf("unexpected text %q", got)
	}
	if models.model != defaultModel {
		t.Fatalf("expected default model, got %q", models.model)
	}
	if models.config == nil || models.config.SystemInstruction == nil {
		t.Fatalf("expected system instruction to be set")
	}
}

func TestGenerateTextEmptyResponse(t *testing.T) {
	client := newClient(&fakeModels{resp: &genai.GenerateContentResponse{}}, "m")

	if _, err := client.GenerateText(context.Background(), "", "hello"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestTranscribeStripsCodecParameter(t *testing.T) {
	models := &fakeModels{resp: textResponse("my geyser is leaking")}
	client := newClient(models, "m")

	got, err := client.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/ogg; codecs=opus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "my geyser is leaking" {
		t.Fatalf("unexpected transcript %q", got)
	}
	parts := models.contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "audio/ogg" {
		t.Fatalf("expected inline audio part with bare mime type")
	}
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	client := newClient(&fakeModels{}, "m")
	if _, err := client.Transcribe(context.Background(), nil, "audio/ogg"); err == nil {
		t.Fatalf("expected error for empty audio")
	}
}
