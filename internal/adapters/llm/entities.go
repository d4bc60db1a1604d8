package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
}

type ChatCompletionChoice struct {
	Message ChatCompletionMessage `json:"message"`
}

type GenerationParameters struct {
	Temperature      float32
	TopK             int32
	TopP             float32
	MaxOutputTokens  int
	ResponseMIMEType string
}

// ReviewOpinion is the model's advisory take on a flagged item. It never
// drives an automatic action; admins see it next to the report.
type ReviewOpinion struct {
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
}

const (
	RecommendApprove  = "approve"
	RecommendReject   = "reject"
	RecommendEscalate = "escalate"
)
