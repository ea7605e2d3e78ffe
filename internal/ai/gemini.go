// README: Gemini-backed reposition advisor.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"taxisim/internal/modules/reposition"
	"taxisim/internal/types"
)

// GeminiAdvisor implements reposition.Advisor using Google's Gemini models.
type GeminiAdvisor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiAdvisor initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiAdvisor(ctx context.Context, apiKey string) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Gemini 2.0 Flash for low latency; the advisor is called once per
	// idle taxi per tick.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"

	// Low temperature: we want a stable placement decision, not creativity.
	model.SetTemperature(0.2)

	return &GeminiAdvisor{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (a *GeminiAdvisor) Close() {
	a.client.Close()
}

// advisorReply is the JSON shape the model is instructed to return.
type advisorReply struct {
	Node      int    `json:"node"`
	Reasoning string `json:"reasoning"`
}

// SuggestNode asks the model to pick a destination from the candidate set.
func (a *GeminiAdvisor) SuggestNode(ctx context.Context, req reposition.AdvisorRequest) (types.NodeID, error) {
	prompt := buildAdvisorPrompt(req)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	cleanJSON := cleanJSONString(responseText.String())

	var reply advisorReply
	if err := json.Unmarshal([]byte(cleanJSON), &reply); err != nil {
		return 0, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	return types.NodeID(reply.Node), nil
}

// buildAdvisorPrompt constructs the instructions for the model.
func buildAdvisorPrompt(req reposition.AdvisorRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Role: You are the dispatch brain of a taxi fleet simulator.
An idle taxi must be repositioned to improve coverage of future demand.

Taxi %d is at node %d (%.6f, %.6f), simulation time %d.

Candidate destination nodes (pick EXACTLY ONE of these):
`, req.TaxiID, req.Position, req.Coord.X, req.Coord.Y, req.Now)
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- node %d at (%.6f, %.6f), travel time %d\n", c.Node, c.Coord.X, c.Coord.Y, c.TravelTime)
	}
	if len(req.OtherTaxis) > 0 {
		b.WriteString("\nOther idle taxis (avoid clustering near them):\n")
		for _, t := range req.OtherTaxis {
			fmt.Fprintf(&b, "- taxi %d at node %d (%.6f, %.6f)\n", t.TaxiID, t.Node, t.Coord.X, t.Coord.Y)
		}
	}
	b.WriteString(`
RULES:
1. "node" MUST be one of the candidate node ids listed above.
2. Prefer destinations that spread the fleet out rather than bunching it.
3. Keep "reasoning" to one short sentence.

Output JSON Schema:
{
  "node": integer,
  "reasoning": "string"
}
`)
	return b.String()
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
