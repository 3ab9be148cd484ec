package gemini

import "encoding/json"

// Request and response bodies of models/{model}:streamGenerateContent.

type wireRequest struct {
	Contents          []wireContent `json:"contents"`
	SystemInstruction *wireContent  `json:"system_instruction,omitempty"`
	Tools             []wireTool    `json:"tools,omitempty"`
}

// wireContent is one turn; Role is "user" or "model".
type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

// wirePart carries exactly one of its payload fields.
type wirePart struct {
	Text             string            `json:"text,omitempty"`
	Thought          *bool             `json:"thought,omitempty"`
	InlineData       *wireBlob         `json:"inlineData,omitempty"`
	FunctionCall     *wireCall         `json:"functionCall,omitempty"`
	FunctionResponse *wireCallResponse `json:"functionResponse,omitempty"`
}

// wireBlob is base64 inline media.
type wireBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireTool struct {
	FunctionDeclarations []wireFunction `json:"functionDeclarations"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type wireCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type wireCallResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

// wireChunk is one SSE payload.
type wireChunk struct {
	Candidates     []wireCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
}
