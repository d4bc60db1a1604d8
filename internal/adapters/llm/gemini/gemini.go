package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/swapspot/swapspot/internal/adapters"
	"github.com/swapspot/swapspot/internal/adapters/llm"
)

const DefaultModel = "gemini-2.5-flash-lite"

const reviewSystemPrompt = `You are a moderation reviewer for a barter marketplace where users trade goods without money. ` +
	`You receive content that automated rules flagged, together with the rule reasons. ` +
	`Respond with a JSON object {"recommendation": "approve"|"reject"|"escalate", "rationale": "<one sentence>"}. ` +
	`"approve" means the content is a legitimate trade post and the rules over-matched, ` +
	`"reject" means it violates the no-money or anti-spam policy, "escalate" means a human must decide.`

type API struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Entry
}

func NewGemini(ctx context.Context, apiKey, model string, logger *log.Entry) (adapters.LLM, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	api := &API{
		client: client,
		logger: logger,
		model:  client.GenerativeModel(model),
	}
	api.withParameters(nil)
	return api, nil
}

func (g *API) withParameters(parameters *llm.GenerationParameters) {
	if parameters == nil {
		parameters = &llm.GenerationParameters{
			Temperature:      0.2,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  1024,
			ResponseMIMEType: "text/plain",
		}
	}
	g.model.SetTemperature(parameters.Temperature)
	g.model.SetTopK(parameters.TopK)
	g.model.SetTopP(parameters.TopP)
	g.model.SetMaxOutputTokens(int32(parameters.MaxOutputTokens))
	g.model.ResponseMIMEType = parameters.ResponseMIMEType
}

func (g *API) ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	if len(messages) == 0 {
		return llm.ChatCompletionResponse{}, fmt.Errorf("no messages to send")
	}

	session := g.model.StartChat()
	session.History = []*genai.Content{}

	lastMessage, messages := messages[len(messages)-1], messages[:len(messages)-1]

	backupInstruction := g.model.SystemInstruction
	defer func() { g.model.SystemInstruction = backupInstruction }()

	for _, message := range messages {
		if message.Role == llm.RoleSystem {
			g.model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(message.Content)},
			}
			continue
		}
		session.History = append(session.History, &genai.Content{
			Parts: []genai.Part{genai.Text(message.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(lastMessage.Content))
	if err != nil {
		return llm.ChatCompletionResponse{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.ChatCompletionResponse{}, fmt.Errorf("no response candidates available")
	}

	response := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		response += fmt.Sprintf("%v", part)
	}

	return llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{{Message: llm.ChatCompletionMessage{
			Role:    llm.RoleAssistant,
			Content: response,
		}}},
	}, nil
}

func (g *API) ReviewReport(ctx context.Context, content string, reasons []string) (llm.ReviewOpinion, error) {
	messages := []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: reviewSystemPrompt},
		{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Flag reasons: %s\n\nContent:\n%s",
				strings.Join(reasons, "; "), content),
		},
	}

	resp, err := g.ChatCompletion(ctx, messages)
	if err != nil {
		return llm.ReviewOpinion{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.ReviewOpinion{}, fmt.Errorf("no response choices available")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(raw, "`\n ")

	var opinion llm.ReviewOpinion
	if err := json.Unmarshal([]byte(raw), &opinion); err != nil {
		g.logger.WithError(err).Debug("unparseable review response, escalating")
		return llm.ReviewOpinion{
			Recommendation: llm.RecommendEscalate,
			Rationale:      raw,
		}, nil
	}
	switch opinion.Recommendation {
	case llm.RecommendApprove, llm.RecommendReject, llm.RecommendEscalate:
	default:
		opinion.Recommendation = llm.RecommendEscalate
	}
	return opinion, nil
}
