package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shaiso/Replay/internal/domain"
)

const extractionSystemPrompt = `You extract structured data from a web page.
Answer strictly with a JSON object matching the provided schema. Use null for values that are not present on the page.`

// runExtraction выполняет extraction-действие.
func (it *Interpreter) runExtraction(ctx context.Context, node *nodeState, a *domain.ExtractionAction) error {
	switch {
	case a.LLM != nil:
		data, err := it.extractLLM(ctx, node, a.LLM, a.LLM.ExtractionFormat)
		if err != nil {
			return err
		}
		node.mem.AddOutput(domain.OutputData{UniqueIdentifier: a.UniqueIdentifier, JSONData: data})
		for _, name := range a.LLM.OutputVariableNames {
			node.mem.SetGenerated(name, toStrings(data[name])...)
		}
		node.logger.Info("llm extraction stored", "fields", len(data))
		return nil

	case a.Screenshot != nil:
		return it.extractScreenshot(ctx, node, a)

	case a.State != nil:
		state, err := it.browser.Snapshot(ctx, false)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		state = browserStateOrEmpty(state)
		node.mem.AddOutput(domain.OutputData{
			UniqueIdentifier: a.UniqueIdentifier,
			JSONData:         map[string]any{"url": state.URL, "title": state.Title},
		})
		return nil

	default:
		return fmt.Errorf("%w: %s extraction", ErrNotSupported, a.Variant())
	}
}

// extractLLM снимает страницу и просит модель вернуть объект по формату.
func (it *Interpreter) extractLLM(ctx context.Context, node *nodeState, e *domain.LLMExtraction, format domain.ExtractionFormat) (map[string]any, error) {
	if it.model == nil {
		return nil, ErrNoLanguageModel
	}

	schema, err := format.JSONSchema()
	if err != nil {
		return nil, err
	}

	withScreenshot := e.UsesSource(domain.SourceScreenshot)
	state, err := it.browser.Snapshot(ctx, withScreenshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	state = browserStateOrEmpty(state)

	var axtree string
	if e.UsesSource(domain.SourceAxtree) {
		axtree = state.Axtree
	}
	prompt := buildExtractionPrompt(node.sub(e.ExtractionInstructions), axtree)

	req := CompletionRequest{
		System:     extractionSystemPrompt,
		Prompt:     prompt,
		SchemaName: "extraction",
		Schema:     schema,
	}
	if withScreenshot {
		req.Screenshot = state.Screenshot
	}

	completion, err := it.model.Complete(ctx, req)
	if err != nil {
		node.mem.AddBrowserState(*state)
		return nil, fmt.Errorf("model: %w", err)
	}

	node.mem.AddTokenUsage(completion.Usage)
	state.FinalPrompt = prompt
	state.LLMResponse = completion.Content
	node.mem.AddBrowserState(*state)

	var data map[string]any
	if err := json.Unmarshal([]byte(stripFences(completion.Content)), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModelResponse, err)
	}
	return data, nil
}

func (it *Interpreter) extractScreenshot(ctx context.Context, node *nodeState, a *domain.ExtractionAction) error {
	png, err := it.browser.Screenshot(ctx, a.Screenshot.FullPage)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	filename := filepath.Base(node.sub(a.Screenshot.Filename))
	path := filepath.Join(node.mem.Dirs.Screenshots, filename)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}

	node.mem.AddOutput(domain.OutputData{
		UniqueIdentifier: a.UniqueIdentifier,
		Screenshot: &domain.ScreenshotData{
			Filename: filename,
			Base64:   base64.StdEncoding.EncodeToString(png),
		},
	})
	node.logger.Info("screenshot stored", "path", path)
	return nil
}

func buildExtractionPrompt(instructions, axtree string) string {
	var b strings.Builder
	b.WriteString("Instructions:\n")
	b.WriteString(instructions)
	if axtree != "" {
		b.WriteString("\n\nPage content:\n")
		b.WriteString(axtree)
	}
	return b.String()
}

// toStrings превращает значение из ответа модели в список строк переменной.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, toStrings(item)...)
		}
		return out
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return []string{fmt.Sprint(t)}
		}
		return []string{string(b)}
	}
}
