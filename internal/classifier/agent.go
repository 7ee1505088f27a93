package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fixmate_backend/internal/domain"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"
)

const (
	agentAppName       = "fixmate_classifier"
	recordCategoryTool = "RecordCategory"
)

const classifierInstruction = `You triage home repair requests from South African clients.
Decide which trade the request needs: plumbing, electrical or general.
plumbing covers water, pipes, geysers, taps, toilets and drains.
electrical covers lights, plugs, wiring, switches and DB boards.
Anything else is general.
Always call the RecordCategory tool exactly once with your answer, then reply with the same single word.`

type recordCategoryInput struct {
	Category string `json:"category"`
}

type recordCategoryOutput struct {
	Category string `json:"category"`
}

// AgentClassifier is a TextClassifier backed by an ADK LLM agent on Gemini.
type AgentClassifier struct {
	runner         *runner.Runner
	sessionService session.Service
}

// NewAgentClassifier builds the agent on the given Gemini model.
func NewAgentClassifier(ctx context.Context, apiKey, modelName string) (*AgentClassifier, error) {
	llm, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini model: %w", err)
	}
	return newAgentClassifier(llm)
}

func newAgentClassifier(llm model.LLM) (*AgentClassifier, error) {
	recordTool, err := functiontool.New(functiontool.Config{
		Name:        recordCategoryTool,
		Description: "Records the trade category for the request. category must be plumbing, electrical or general.",
	}, func(_ tool.Context, input recordCategoryInput) (recordCategoryOutput, error) {
		category, ok := domain.ParseCategory(input.Category)
		if !ok {
			return recordCategoryOutput{}, fmt.Errorf("unknown category %q", input.Category)
		}
		return recordCategoryOutput{Category: category.String()}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create %s tool: %w", recordCategoryTool, err)
	}

	classifierAgent, err := llmagent.New(llmagent.Config{
		Name:        "ServiceClassifier",
		Model:       llm,
		Description: "Classifies repair requests into a trade category.",
		Instruction: classifierInstruction,
		Tools:       []tool.Tool{recordTool},
	})
	if err != nil {
		return nil, fmt.Errorf("create classifier agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        agentAppName,
		Agent:          classifierAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("create classifier runner: %w", err)
	}

	return &AgentClassifier{runner: r, sessionService: sessionService}, nil
}

// ClassifyText runs the agent in a fresh session and returns the category it
// recorded, or its final text when the tool was not called.
func (a *AgentClassifier) ClassifyText(ctx context.Context, text string) (string, error) {
	userID := "classifier"
	sessionID := uuid.NewString()

	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   agentAppName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = a.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   agentAppName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	message := &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: "Request: " + text}},
	}

	var recorded string
	var output strings.Builder
	for event, err := range a.runner.Run(ctx, userID, sessionID, message, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", err
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part == nil {
				continue
			}
			if resp := part.FunctionResponse; resp != nil && resp.Name == recordCategoryTool {
				if value, ok := resp.Response["category"].(string); ok && value != "" {
					recorded = value
				}
			}
			output.WriteString(part.Text)
		}
	}

	if recorded != "" {
		return recorded, nil
	}
	if final := strings.TrimSpace(output.String()); final != "" {
		return final, nil
	}
	return "", errors.New("classifier agent produced no answer")
}
