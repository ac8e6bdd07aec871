package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"dunning/types"
	"dunning/vars"
)

// LLMAdviser asks the chat model for tone and CTA hints. The engine treats
// it as an opaque capability; any failure falls back to the deterministic
// ladder in the cycle service.
type LLMAdviser struct {
	chatModel model.ToolCallingChatModel
}

func NewLLMAdviser(chatModel model.ToolCallingChatModel) *LLMAdviser {
	return &LLMAdviser{chatModel: chatModel}
}

func (a *LLMAdviser) Hints(ctx context.Context, c *types.Case, senderLevel int) (string, string, error) {
	t, err := template.New("tone").Parse(vars.TONEHINT)
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, map[string]any{
		"State":            string(c.State),
		"TotalOutstanding": fmt.Sprintf("%.2f", c.TotalOutstanding()),
		"TouchCount":       c.TouchCount,
		"LastTone":         c.LastTone,
		"BrokenPromises":   c.BrokenPromisesCount,
		"Hardship":         c.HardshipIndicated,
		"SenderLevel":      senderLevel,
		"LastResponse":     string(c.LastResponseIntent),
	})
	if err != nil {
		return "", "", err
	}

	resp, err := a.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(buf.String())})
	if err != nil {
		return "", "", err
	}

	raw := strings.TrimSpace(resp.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	var out struct {
		ToneHint string `json:"tone_hint"`
		CTAHint  string `json:"cta_hint"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", "", fmt.Errorf("unparseable adviser output: %w", err)
	}
	if !validTone(out.ToneHint) {
		return "", "", fmt.Errorf("adviser proposed unknown tone %q", out.ToneHint)
	}
	return out.ToneHint, out.CTAHint, nil
}

// DeterministicHints is the ladder fallback: sender level maps onto the tone
// ladder, hardship overrides to a concerned inquiry with a plan offer.
func DeterministicHints(c *types.Case, senderLevel int) (string, string) {
	if c.HardshipIndicated {
		return vars.ToneConcernedInquiry, "acknowledge difficulty, offer a payment plan"
	}
	idx := senderLevel - 1
	if c.BrokenPromisesCount > 0 {
		idx++
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(vars.ToneLadder) {
		idx = len(vars.ToneLadder) - 1
	}
	cta := "request payment in full"
	if c.BrokenPromisesCount > 0 {
		cta = "reference the broken commitment, request immediate payment"
	}
	return vars.ToneLadder[idx], cta
}

func validTone(tone string) bool {
	switch tone {
	case vars.ToneFriendlyReminder, vars.ToneProfessional, vars.ToneConcernedInquiry,
		vars.ToneFirm, vars.ToneFinalNotice:
		return true
	}
	return false
}
