package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"text/template"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"dunning/types"
	"dunning/vars"
)

// llmClassification mirrors the JSON contract in vars.CLASSIFY.
type llmClassification struct {
	Classification   string          `json:"classification"`
	Confidence       float64         `json:"confidence"`
	Reasoning        string          `json:"reasoning"`
	SecondaryIntents []string        `json:"secondary_intents"`
	Extracted        ExtractedFields `json:"extracted_data"`
}

// EmailClassifier classifies inbound debtor emails through a chat model and
// resolves the result via the priority adapter. A model or parse failure is
// never fatal: it degrades to UNCLEAR with the attention flag set.
type EmailClassifier struct {
	chatModel model.ToolCallingChatModel
}

func NewEmailClassifier(chatModel model.ToolCallingChatModel) *EmailClassifier {
	return &EmailClassifier{chatModel: chatModel}
}

func (e *EmailClassifier) Classify(ctx context.Context, email types.InboundEmail, c *types.Case, cfg types.TenantConfig) (Resolution, error) {
	prompt, err := renderClassifyPrompt(email, c)
	if err != nil {
		return unclear(), nil
	}

	resp, err := e.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(email.Body),
	})
	if err != nil {
		log.Printf("[Classify] model call failed for case %s: %v", c.CaseID, err)
		return unclear(), nil
	}

	raw := stripJSON(resp.Content)
	var out llmClassification
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("[Classify] unparseable model output for case %s: %v", c.CaseID, err)
		return unclear(), nil
	}

	candidates := []Candidate{{
		Label:      out.Classification,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
		Extracted:  out.Extracted,
	}}
	for _, sec := range out.SecondaryIntents {
		// Secondary signals carry the same confidence but no extraction;
		// extracted fields are scoped to the top intent only.
		candidates = append(candidates, Candidate{Label: sec, Confidence: out.Confidence})
	}

	return Resolve(candidates, cfg.ConfidenceThreshold), nil
}

func unclear() Resolution {
	return Resolution{Intent: types.IntentUnclear, NeedsAttention: true}
}

func renderClassifyPrompt(email types.InboundEmail, c *types.Case) (string, error) {
	t, err := template.New("classify").Parse(vars.CLASSIFY)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, map[string]any{
		"TotalOutstanding": fmt.Sprintf("%.2f", c.TotalOutstanding()),
		"BrokenPromises":   c.BrokenPromisesCount,
		"ActiveDispute":    c.ActiveDispute,
		"Hardship":         c.HardshipIndicated,
		"FromName":         email.FromName,
		"FromAddress":      email.FromAddress,
		"Subject":          email.Subject,
		"Body":             email.Body,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stripJSON cuts markdown fences and anything outside the outermost braces.
func stripJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}
