package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/plugkit/plugkit/llm"
)

// JQInput defines the input for the jq tool.
type JQInput struct {
	Expression string `json:"expression" jsonschema:"required,description=jq expression to evaluate"`
	JSON       string `json:"json" jsonschema:"required,description=JSON document to evaluate against"`
}

// JQOutput defines the output of the jq tool.
type JQOutput struct {
	Results []any `json:"results"`
}

// JQTool returns the jq tool.
func JQTool() (llm.Tool, error) {
	return llm.NewTool(
		"jq",
		"Evaluate a jq expression against a JSON document and return all results.",
		runJQ,
	)
}

// MustJQ returns the jq tool, panicking on error.
func MustJQ() llm.Tool {
	tool, err := JQTool()
	if err != nil {
		panic(err)
	}
	return tool
}

func runJQ(ctx context.Context, input JQInput) (JQOutput, error) {
	query, err := gojq.Parse(input.Expression)
	if err != nil {
		return JQOutput{}, fmt.Errorf("parsing expression: %w", err)
	}

	var doc any
	if err := json.Unmarshal([]byte(input.JSON), &doc); err != nil {
		return JQOutput{}, fmt.Errorf("parsing JSON document: %w", err)
	}

	var out JQOutput
	iter := query.RunWithContext(ctx, doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return JQOutput{}, fmt.Errorf("evaluating expression: %w", err)
		}
		out.Results = append(out.Results, v)
	}

	return out, nil
}
