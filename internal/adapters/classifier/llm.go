package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	openai "aegis-intel/internal/infra/openai"
)

const systemPrompt = "You are a military intelligence analyst. Reply with JSON only, no prose."

const instruction = `Identify military conflict news in the list below.
Return ONLY a JSON list, one object per relevant article:
[{"id": int, "threat": 1-10, "lat": float, "lon": float, "loc": "Country", "sum": "brief text"}]
Use the "id" from the input, never invent new ids. Omit articles that are not about armed conflict.
Data: `

// ErrIndexOutOfRange возвращается, когда модель ссылается на несуществующую статью.
var ErrIndexOutOfRange = errors.New("classifier: index out of range")

type chatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM размечает пачку статей одним запросом к chat completions.
type LLM struct {
	client  chatCompletionClient
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

var _ domain.Classifier = (*LLM)(nil)

// NewLLM создаёт классификатор.
func NewLLM(client chatCompletionClient, model string, timeout time.Duration, log zerolog.Logger) *LLM {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLM{client: client, model: model, timeout: timeout, log: log}
}

type promptItem struct {
	ID    int    `json:"id"`
	Title string `json:"t"`
}

type annotationPayload struct {
	ID       json.Number  `json:"id"`
	Relevant *bool        `json:"relevant,omitempty"`
	Threat   json.Number  `json:"threat"`
	Lat      *json.Number `json:"lat"`
	Lon      *json.Number `json:"lon"`
	Loc      string       `json:"loc"`
	Sum      string       `json:"sum"`
}

// Classify возвращает разметку; любая ошибка отбрасывает всю пачку.
func (c *LLM) Classify(ctx context.Context, items []domain.RawItem) ([]domain.Annotation, error) {
	if len(items) == 0 {
		return nil, nil
	}
	payload := make([]promptItem, 0, len(items))
	for i, item := range items {
		payload = append(payload, promptItem{ID: i, Title: item.Title})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("classifier: marshal batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: systemPrompt},
			{Role: openai.RoleUser, Content: instruction + string(body)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: completion: %w", err)
	}
	content, err := resp.Content()
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	anns, err := Parse(content, len(items))
	if err != nil {
		c.log.Debug().Str("reply", truncate(content, 500)).Msg("classifier: ответ не разобран")
		return nil, err
	}
	c.log.Info().Int("batch", len(items)).Int("annotated", len(anns)).Msg("classifier: пачка размечена")
	return anns, nil
}

// Parse разбирает ответ модели для пачки из n статей.
func Parse(reply string, n int) ([]domain.Annotation, error) {
	raw := []byte(stripFences(reply))
	if len(raw) == 0 {
		return nil, fmt.Errorf("classifier: %w", openai.ErrEmptyReply)
	}
	list, err := unwrapArray(raw)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(list))
	var payload []annotationPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("classifier: decode reply: %w", err)
	}

	seen := make(map[int]struct{}, len(payload))
	out := make([]domain.Annotation, 0, len(payload))
	for pos, p := range payload {
		idx, err := toInt(p.ID)
		if err != nil {
			return nil, fmt.Errorf("classifier: element %d: id: %w", pos, err)
		}
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, idx, n)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		if p.Relevant != nil && !*p.Relevant {
			continue
		}
		ann := domain.Annotation{
			Index:    idx,
			Relevant: true,
			Loc:      p.Loc,
			Sum:      p.Sum,
		}
		if p.Threat != "" {
			f, err := p.Threat.Float64()
			if err != nil {
				return nil, fmt.Errorf("classifier: element %d: threat: %w", pos, err)
			}
			ann.Threat = int(math.Round(math.Min(math.Max(f, domain.MinThreat), domain.MaxThreat)))
		}
		if ann.Lat, err = optionalFloat(p.Lat); err != nil {
			return nil, fmt.Errorf("classifier: element %d: lat: %w", pos, err)
		}
		if ann.Lon, err = optionalFloat(p.Lon); err != nil {
			return nil, fmt.Errorf("classifier: element %d: lon: %w", pos, err)
		}
		out = append(out, ann)
	}
	return out, nil
}

// stripFences убирает markdown-обёртку ```json ... ```.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// unwrapArray принимает массив или объект с единственным ключом-массивом.
func unwrapArray(raw []byte) ([]byte, error) {
	switch raw[0] {
	case '[':
		return raw, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("classifier: decode reply: %w", err)
		}
		if len(obj) != 1 {
			return nil, fmt.Errorf("classifier: expected a list, got object with %d keys", len(obj))
		}
		for _, v := range obj {
			v = bytes.TrimSpace(v)
			if len(v) == 0 || v[0] != '[' {
				return nil, fmt.Errorf("classifier: expected a list inside object")
			}
			return v, nil
		}
	}
	return nil, fmt.Errorf("classifier: reply is not JSON")
}

func toInt(n json.Number) (int, error) {
	if n == "" {
		return 0, errors.New("missing")
	}
	if v, err := n.Int64(); err == nil {
		return int(v), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %s", n)
	}
	return int(f), nil
}

func optionalFloat(n *json.Number) (*float64, error) {
	if n == nil || *n == "" {
		return nil, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
