package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/problembook/internal/parser"
	"github.com/jackzampolin/problembook/internal/retry"
)

const (
	aiParseTemperature = 0.05
	aiParseMaxTokens   = 8000
)

var parseResultSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"problems": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["number", "content"],
				"properties": {
					"number": {"type": "string"},
					"content": {"type": "string"},
					"sub_problems": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["letter", "content"],
							"properties": {
								"letter": {"type": "string"},
								"content": {"type": "string"}
							}
						}
					},
					"continues_from_prev": {"type": "boolean"},
					"continues_to_next": {"type": "boolean"}
				}
			}
		}
	}
}`)

// AIParserConfig configures an AIParser.
type AIParserConfig struct {
	Client LLMClient
	Model  string // defaults to the client's model
	Logger *slog.Logger
}

// AIParser extracts problems from page text with a chat model.
type AIParser struct {
	client LLMClient
	model  string
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewAIParser creates an AIParser. It fails only if the built-in response
// schema does not compile.
func NewAIParser(cfg AIParserConfig) (*AIParser, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("ai parser: %w", ErrNoProvider)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	schema, err := compileSchema("parse_result.json", parseResultSchema)
	if err != nil {
		return nil, err
	}
	return &AIParser{
		client: cfg.Client,
		model:  cfg.Model,
		schema: schema,
		logger: cfg.Logger,
	}, nil
}

// Parse asks the model for the problems on one page.
func (p *AIParser) Parse(ctx context.Context, text string) (parser.ParseResult, error) {
	res, err := p.client.Chat(ctx, &ChatRequest{
		Messages:    []Message{{Role: "user", Content: buildParsePrompt(cleanOCRText(text))}},
		Model:       p.model,
		Temperature: aiParseTemperature,
		MaxTokens:   aiParseMaxTokens,
	})
	if err != nil {
		return parser.ParseResult{}, err
	}

	var out parser.ParseResult
	if err := decodeStructured(res.Content, p.schema, &out); err != nil {
		return parser.ParseResult{}, fmt.Errorf("ai parse via %s: %w", p.client.Name(), retry.Permanent(err))
	}
	if out.Problems == nil {
		out.Problems = []parser.ParsedProblem{}
	}
	p.logger.Debug("ai parse complete",
		"provider", res.Provider,
		"problems", len(out.Problems),
		"tokens", res.TotalTokens)
	return out, nil
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// cleanOCRText drops a letter the OCR doubled across a line break
// ("ре\n е" becomes "ре") and collapses blank lines.
func cleanOCRText(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' && i > 0 && isLowerLetter(runes[i-1]) {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && runes[j] == runes[i-1] {
				i = j
				continue
			}
		}
		b.WriteRune(r)
	}
	return blankLines.ReplaceAllString(b.String(), "\n")
}

func isLowerLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'а' && r <= 'я')
}

func buildParsePrompt(text string) string {
	return `Ты - эксперт по анализу математических учебников с 99% точностью.

ЗАДАЧА: Разбери OCR текст и выдели ВСЕ задачи с подзадачами.

КРИТИЧЕСКИ ВАЖНЫЕ ПРАВИЛА:
1. Номера задач: 223, 224, 225 (целые числа, могут быть точки для подномеров: 1.1, 1.2)
2. Подзадачи ВСЕГДА начинаются с буквы и скобки: а), б), в), г), д), е), ж), з), и), к), л), м), н), о), п), р), с), т)
3. Подзадача = буква + ) + пробел/перенос + текст
4. Если текст содержит "а)" или "б)" - это подзадачи
5. Задача заканчивается перед следующей задачей или концом текста
6. Игнорируй: теоремы, определения, примеры, упражнения без номеров
7. Верни ТОЛЬКО JSON

ОСОБЫЕ СЛУЧАИ:
- "289. Текст... а)... б)... в)..." - это задача 289 с подзадачами
- "Докажите, что..." без номера - НЕ задача
- "Пример 1" - НЕ задача (это пример)

ФОРМАТ ОТВЕТА (строго JSON):
{
  "problems": [
    {
      "number": "289",
      "content": "Полный текст задачи со всеми подзадачами (а), б), в)...)",
      "sub_problems": [
        {"letter": "а", "content": "Текст подзадачи без 'а)'"},
        {"letter": "б", "content": "Текст подзадачи без 'б)'"}
      ],
      "continues_from_prev": false,
      "continues_to_next": false
    }
  ]
}

Если задача начинается на этой странице (есть номер в начале) - continues_from_prev = false
Если задача очевидно продолжается с предыдущей страницы (начинается с текста без номера, который логически продолжает предыдущую) - continues_from_prev = true

OCR текст:
` + text + `

Верни ТОЛЬКО JSON, без markdown (без ` + "```" + `).`
}

var _ parser.AITextParser = (*AIParser)(nil)
