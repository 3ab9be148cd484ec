package gemini

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/petal-labs/conduit/core"
)

// thinkingInstruction asks the model to expose its reasoning inline, where
// the segmenter splits it from the answer.
const thinkingInstruction = "Before answering, reason step by step inside <thinking> and </thinking> tags. " +
	"Keep only your reasoning inside the tags and write the final answer after the closing tag."

// buildRequest creates a Gemini API request for one turn.
func buildRequest(req *core.TurnRequest) *wireRequest {
	system, contents := mapMessages(req.Messages)
	if req.System != "" {
		system = joinNonEmpty(req.System, system)
	}
	if req.Reasoning {
		system = joinNonEmpty(system, thinkingInstruction)
	}

	gemReq := &wireRequest{Contents: contents}
	if system != "" {
		gemReq.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: system}},
		}
	}
	if len(req.Tools) > 0 {
		gemReq.Tools = mapTools(req.Tools)
	}
	return gemReq
}

// mapMessages converts a transcript to Gemini contents. System messages are
// collected into one instruction string; consecutive tool results are
// grouped into a single user turn of function responses.
func mapMessages(msgs []core.Message) (system string, contents []wireContent) {
	var systemParts []string

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case core.RoleUser:
			contents = append(contents, wireContent{
				Role:  "user",
				Parts: mapUserParts(msg),
			})
		case core.RoleAssistant:
			contents = append(contents, wireContent{
				Role:  "model",
				Parts: mapModelParts(msg),
			})
		case core.RoleTool:
			part := wirePart{FunctionResponse: &wireCallResponse{
				Name:     msg.Name,
				Response: functionResponse(msg.Content),
			}}
			if n := len(contents); n > 0 && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, wireContent{Role: "user", Parts: []wirePart{part}})
		}
	}

	return strings.Join(systemParts, "\n\n"), contents
}

// mapUserParts turns text and attachments into parts. Documents travel as
// their extracted text.
func mapUserParts(msg core.Message) []wirePart {
	text := msg.Content
	var images []wirePart
	for _, a := range msg.Attachments {
		switch {
		case a.IsImage():
			images = append(images, wirePart{InlineData: &wireBlob{
				MimeType: a.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(a.Data),
			}})
		case a.Text != "":
			text += "\n\n--- " + a.Name + " ---\n" + a.Text
		}
	}
	parts := make([]wirePart, 0, len(images)+1)
	if text != "" || len(images) == 0 {
		parts = append(parts, wirePart{Text: text})
	}
	return append(parts, images...)
}

func mapModelParts(msg core.Message) []wirePart {
	var parts []wirePart
	if msg.Content != "" {
		parts = append(parts, wirePart{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		parts = append(parts, wirePart{FunctionCall: &wireCall{
			Name: tc.Name,
			Args: json.RawMessage(tc.ArgumentsJSON()),
		}})
	}
	if len(parts) == 0 {
		parts = append(parts, wirePart{Text: ""})
	}
	return parts
}

func isFunctionResponses(c wireContent) bool {
	return c.Role == "user" && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// functionResponse wraps a compacted tool result in the object Gemini expects.
func functionResponse(content string) json.RawMessage {
	b, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

// mapTools converts tool specs to Gemini function declarations.
func mapTools(specs []core.ToolSpec) []wireTool {
	if len(specs) == 0 {
		return nil
	}

	decls := make([]wireFunction, len(specs))
	for i, s := range specs {
		decls[i] = wireFunction{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		}
	}

	return []wireTool{{FunctionDeclarations: decls}}
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n\n" + b
}
