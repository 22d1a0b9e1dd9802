package tools

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/svc"
)

// ErrorResult is what a failed tool call returns to the model.
type ErrorResult struct {
	Error string `json:"error"`
}

type Dispatcher struct {
	svcCtx *svc.ServiceContext
	tools  map[string]Tool
}

func NewDispatcher(svcCtx *svc.ServiceContext) *Dispatcher {
	catalogue := Catalogue()
	tools := make(map[string]Tool, len(catalogue))
	for _, t := range catalogue {
		tools[t.Name] = t
	}
	return &Dispatcher{svcCtx: svcCtx, tools: tools}
}

// Dispatch runs the named tool. Failures never escape: they come back as an ErrorResult.
func (d *Dispatcher) Dispatch(ctx context.Context, name, argsJSON string) any {
	logger := logx.WithContext(ctx)
	tool, ok := d.tools[name]
	if !ok {
		logger.Errorf("tools: unknown tool %s", name)
		return ErrorResult{Error: "unknown tool: " + name}
	}
	result, err := tool.call(ctx, d.svcCtx, json.RawMessage(argsJSON))
	if err != nil {
		logger.Errorf("tools: %s failed: %v", name, err)
		return ErrorResult{Error: err.Error()}
	}
	logger.Infof("tools: %s served", name)
	return result
}

// HandleToolCall runs a model-issued tool call and wraps the JSON result as a tool message.
func (d *Dispatcher) HandleToolCall(ctx context.Context, call openai.ChatCompletionMessageToolCall) openai.ChatCompletionMessageParamUnion {
	result := d.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
	body, err := json.Marshal(result)
	if err != nil {
		body, _ = json.Marshal(ErrorResult{Error: err.Error()})
	}
	return openai.ToolMessage(string(body), call.ID)
}
