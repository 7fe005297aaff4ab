package live

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// FunctionCall is a single tool invocation requested by the backend.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ServerEvent is one decoded message from the Gemini Live stream.
// A single wire message may carry several of these fields at once.
type ServerEvent struct {
	SetupComplete bool

	// Partial transcription of the user's speech.
	InputTranscription string

	// Partial transcription of the model's spoken response.
	OutputTranscription string

	// Inline audio payload, decoded from base64. Mono PCM16 unless
	// AudioMIME says otherwise.
	Audio     []byte
	AudioMIME string

	// The model finished its turn.
	TurnComplete bool

	// The user barged in; playback should be cut.
	Interrupted bool

	// Tool calls, in the order the backend listed them.
	ToolCalls []FunctionCall
}

// Empty reports whether the event carries nothing actionable.
func (e ServerEvent) Empty() bool {
	return !e.SetupComplete && !e.TurnComplete && !e.Interrupted &&
		e.InputTranscription == "" && e.OutputTranscription == "" &&
		len(e.Audio) == 0 && len(e.ToolCalls) == 0
}

// parseServerMessage decodes a raw BidiGenerateContent message into a
// ServerEvent. Unknown fields are ignored.
func parseServerMessage(raw []byte) (ServerEvent, error) {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ServerEvent{}, err
	}

	var ev ServerEvent

	if _, ok := msg["setupComplete"]; ok {
		ev.SetupComplete = true
	}

	if content, ok := msg["serverContent"].(map[string]any); ok {
		parseServerContent(content, &ev)
	}

	if toolCall, ok := msg["toolCall"].(map[string]any); ok {
		parseToolCall(toolCall, &ev)
	}

	return ev, nil
}

func parseServerContent(content map[string]any, ev *ServerEvent) {
	if turnComplete, ok := content["turnComplete"].(bool); ok && turnComplete {
		ev.TurnComplete = true
	}
	if interrupted, ok := content["interrupted"].(bool); ok && interrupted {
		ev.Interrupted = true
	}

	if modelTurn, ok := content["modelTurn"].(map[string]any); ok {
		parts, _ := modelTurn["parts"].([]any)
		for _, part := range parts {
			partMap, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if inlineData, ok := partMap["inlineData"].(map[string]any); ok {
				mimeType, _ := inlineData["mimeType"].(string)
				if strings.HasPrefix(mimeType, "audio/") {
					if data, ok := inlineData["data"].(string); ok {
						decoded, err := base64.StdEncoding.DecodeString(data)
						if err == nil && len(decoded) > 0 {
							ev.Audio = append(ev.Audio, decoded...)
							ev.AudioMIME = mimeType
						}
					}
				}
			}
			// Some models emit response text as a plain part.
			if text, ok := partMap["text"].(string); ok && text != "" {
				ev.OutputTranscription += text
			}
		}
	}

	if inputTranscript, ok := content["inputTranscription"].(map[string]any); ok {
		if text, ok := inputTranscript["text"].(string); ok {
			ev.InputTranscription += text
		}
	}

	if outputTranscript, ok := content["outputTranscription"].(map[string]any); ok {
		if text, ok := outputTranscript["text"].(string); ok {
			ev.OutputTranscription += text
		}
	}
}

func parseToolCall(toolCall map[string]any, ev *ServerEvent) {
	functionCalls, ok := toolCall["functionCalls"].([]any)
	if !ok {
		return
	}
	for _, fc := range functionCalls {
		fcMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		name, _ := fcMap["name"].(string)
		id, _ := fcMap["id"].(string)
		args, _ := fcMap["args"].(map[string]any)
		ev.ToolCalls = append(ev.ToolCalls, FunctionCall{
			ID:   id,
			Name: name,
			Args: args,
		})
	}
}
