package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

// GenerateImage produces a single 16:9 still.
func (c *HTTPClient) GenerateImage(ctx context.Context, prompt string) (*Media, error) {
	resp, err := c.generateContent(ctx, ImageModel, generateContentRequest{
		Contents: userText(prompt),
		GenerationConfig: &generationConfig{
			ImageConfig: &imageConfig{AspectRatio: "16:9", ImageSize: "1K"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	for _, p := range resp.parts() {
		if p.InlineData == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		mime := p.InlineData.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return &Media{Data: data, MimeType: mime}, nil
	}
	return nil, ErrNoImage
}

// GenerateScript writes a screenplay scene for the idea.
func (c *HTTPClient) GenerateScript(ctx context.Context, idea string) (string, error) {
	resp, err := c.generateContent(ctx, TextModel, generateContentRequest{
		Contents:          userText(ScriptPrompt(idea)),
		SystemInstruction: &content{Parts: []part{{Text: scriptInstruction}}},
	})
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}
	return resp.text(), nil
}

var copilotTools = []tool{{
	FunctionDeclarations: []functionDeclaration{
		{
			Name:        "change_tool",
			Description: "Switch the active tool in the application panel.",
			Parameters: schema{
				Type: "OBJECT",
				Properties: map[string]schema{
					"tool_id": {
						Type:        "STRING",
						Description: "The ID of the tool to switch to. Options: SELECT, CUT, MAGIC_VFX, SCENE_REPLACE, CHARACTER_CREATOR, OBJECT_TRACK, ANIMATION_STUDIO, SCENE_ARCHITECT, MATERIAL_LIBRARY, BRIDGE, SETTINGS",
					},
				},
				Required: []string{"tool_id"},
			},
		},
		{
			Name:        "generate_vfx",
			Description: "Generate a video or image effect based on a description, selecting the appropriate AI engine.",
			Parameters: schema{
				Type: "OBJECT",
				Properties: map[string]schema{
					"prompt":                {Type: "STRING", Description: "Refined prompt for the generation model."},
					"requires_input_source": {Type: "BOOLEAN", Description: "True if the user wants to edit/modify the existing video input."},
					"detected_engine": {
						Type:        "STRING",
						Description: "The best suited AI engine for this task.",
						Enum:        engineNames(),
					},
				},
				Required: []string{"prompt"},
			},
		},
	},
}}

func engineNames() []string {
	out := make([]string, len(Engines))
	for i, e := range Engines {
		out[i] = string(e)
	}
	return out
}

// FallbackCommand is the routing used when the copilot gives no answer.
func FallbackCommand(prompt string) Command {
	return Command{
		Action:              ActionGenerate,
		Prompt:              prompt,
		RequiresInputSource: true,
		Engine:              EngineVeo2,
	}
}

// RouteCommand asks the copilot to map a request to a tool switch or a
// generation. It never fails: any error falls back to a plain video job.
func (c *HTTPClient) RouteCommand(ctx context.Context, prompt string) Command {
	resp, err := c.generateContent(ctx, TextModel, generateContentRequest{
		Contents:          userText(prompt),
		SystemInstruction: &content{Parts: []part{{Text: copilotInstruction}}},
		Tools:             copilotTools,
	})
	if err != nil {
		c.logger.Warn("command routing failed", "error", err, "prompt", logging.Truncate(prompt, 80))
		return FallbackCommand(prompt)
	}

	for _, p := range resp.parts() {
		if p.FunctionCall == nil {
			continue
		}
		cmd, ok := commandFromCall(p.FunctionCall, prompt)
		if ok {
			c.logger.Info("command routed", "action", string(cmd.Action), "tool", cmd.ToolID, "engine", string(cmd.Engine))
			return cmd
		}
	}
	return FallbackCommand(prompt)
}

func commandFromCall(call *functionCall, prompt string) (Command, bool) {
	switch call.Name {
	case "change_tool":
		var args struct {
			ToolID string `json:"tool_id"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil || args.ToolID == "" {
			return Command{}, false
		}
		return Command{
			Action:  ActionChangeTool,
			ToolID:  args.ToolID,
			Message: "Switching to " + args.ToolID + "...",
		}, true

	case "generate_vfx":
		var args struct {
			Prompt              string `json:"prompt"`
			RequiresInputSource bool   `json:"requires_input_source"`
			DetectedEngine      string `json:"detected_engine"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return Command{}, false
		}
		if args.Prompt == "" {
			args.Prompt = prompt
		}
		return Command{
			Action:              ActionGenerate,
			Prompt:              args.Prompt,
			RequiresInputSource: args.RequiresInputSource,
			Engine:              Engine(args.DetectedEngine),
			Message:             "Initiating generation...",
		}, true
	}
	return Command{}, false
}
