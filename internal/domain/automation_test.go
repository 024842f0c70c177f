package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionNode_DecodeInteractionDefaults(t *testing.T) {
	raw := `{"interaction_action": {"click_element": {"command": "get_by_role('button')", "prompt_instructions": "Click Login"}}}`

	var node ActionNode
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	action, ok := node.Action.(*InteractionAction)
	require.True(t, ok, "expected *InteractionAction, got %T", node.Action)
	assert.Equal(t, DefaultMaxTries, action.MaxTries)
	assert.Equal(t, DefaultMaxTimeoutSecondsPerTry, action.MaxTimeoutSecondsPerTry)
	assert.Equal(t, "click_element", action.Variant())
	assert.Equal(t, "Click Login", action.ClickElement.PromptInstructions)
	assert.Zero(t, node.BeforeSleepTime)
}

func TestActionNode_DecodeRejectsVariantCount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no family", `{"before_sleep_time": 1}`},
		{"two families", `{"sleep_action": {"sleep_time": 1}, "state_jump_action": {"next_state_index": 0}}`},
		{"no interaction variant", `{"interaction_action": {"max_tries": 3}}`},
		{"two interaction variants", `{"interaction_action": {"go_back": {}, "check": {"command": "x"}}}`},
		{"two extraction variants", `{"extraction_action": {"state": {}, "screenshot": {"filename": "a.png"}}}`},
		{"two 2fa sources", `{"fetch_2fa_action": {"output_variable_name": "code", "totp": {"secret": "A"}, "api_call": {"url": "u"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node ActionNode
			err := json.Unmarshal([]byte(tt.raw), &node)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAction), "expected ErrInvalidAction, got %v", err)
		})
	}
}

func TestActionNode_DecodeVariantValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty select values", `{"interaction_action": {"select_option": {"command": "x", "select_values": []}}}`},
		{"check without command", `{"interaction_action": {"check": {}}}`},
		{"bad input mode", `{"interaction_action": {"input_text": {"input_text": "a", "fill_or_type": "paste"}}}`},
		{"zero tries", `{"interaction_action": {"max_tries": 0, "go_back": {}}}`},
		{"output variable not in format", `{"extraction_action": {"llm": {"extraction_format": {"a": "str"}, "extraction_instructions": "x", "output_variable_names": ["b"]}}}`},
		{"unknown format type", `{"extraction_action": {"llm": {"extraction_format": {"a": "decimal"}, "extraction_instructions": "x"}}}`},
		{"2fa without output variable", `{"fetch_2fa_action": {"totp": {"secret": "A"}}}`},
		{"negative sleep", `{"sleep_action": {"sleep_time": -1}}`},
		{"zero human wait", `{"human_in_loop_action": {"max_wait_time": 0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node ActionNode
			err := json.Unmarshal([]byte(tt.raw), &node)
			require.Error(t, err)
		})
	}
}

func TestActionNode_RoundTripKeepsFamily(t *testing.T) {
	raw := `{"before_sleep_time": 0.5, "fetch_2fa_action": {"output_variable_name": "otp", "totp": {"secret": "JBSWY3DPEHPK3PXP"}}}`

	var node ActionNode
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	out, err := json.Marshal(node)
	require.NoError(t, err)

	var back ActionNode
	require.NoError(t, json.Unmarshal(out, &back))

	action, ok := back.Action.(*Fetch2FAAction)
	require.True(t, ok)
	assert.Equal(t, 0.5, back.BeforeSleepTime)
	assert.Equal(t, DefaultTOTPDigits, action.TOTP.Digits)
	assert.Equal(t, TwoFAKindTOTP, action.Source())
}

func TestAssertionAction_FormatOptional(t *testing.T) {
	raw := `{"assertion_action": {"llm": {"extraction_instructions": "Is the user logged in?"}}}`

	var node ActionNode
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	action := node.Action.(*AssertionAction)
	assert.True(t, action.LLM.UsesSource(SourceAxtree))
}

func TestScreenshotExtraction_FullPageDefault(t *testing.T) {
	var node ActionNode
	require.NoError(t, json.Unmarshal([]byte(`{"extraction_action": {"screenshot": {"filename": "final.png"}}}`), &node))
	assert.True(t, node.Action.(*ExtractionAction).Screenshot.FullPage)

	require.NoError(t, json.Unmarshal([]byte(`{"extraction_action": {"screenshot": {"filename": "f.png", "full_page": false}}}`), &node))
	assert.False(t, node.Action.(*ExtractionAction).Screenshot.FullPage)
}

func TestTask_Validate(t *testing.T) {
	task := Task{
		TaskID:               "t-1",
		Automation:           Automation{URL: "https://example.com"},
		InputParameters:      map[string][]string{"email": {"a@b.c"}},
		UniqueParameterNames: []string{"email"},
	}
	require.NoError(t, task.Validate())
	assert.Equal(t, []string{"a@b.c"}, task.UniqueParameters())

	task.UniqueParameterNames = []string{"phone"}
	err := task.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTask)

	task.UniqueParameterNames = nil
	task.Automation.URL = ""
	assert.ErrorIs(t, task.Validate(), ErrInvalidAutomation)
}

func TestTask_ValidateRejectsPathLikeID(t *testing.T) {
	for _, id := range []string{"../../x", "..", "a/b", `a\b`, "nested/../up"} {
		task := Task{TaskID: id, Automation: Automation{URL: "https://example.com"}}
		assert.ErrorIs(t, task.Validate(), ErrInvalidTask, "task_id %q", id)
	}

	task := Task{TaskID: "local-3f2a.v1", Automation: Automation{URL: "https://example.com"}}
	assert.NoError(t, task.Validate())
}

func TestExtractionFormat_JSONSchema(t *testing.T) {
	format := ExtractionFormat{
		"name":   "str",
		"tags":   "list[str]",
		"price":  "float",
		"seller": map[string]any{"id": "int"},
		"items":  []any{map[string]any{"sku": "str"}},
	}

	schema, err := format.JSONSchema()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []string{"items", "name", "price", "seller", "tags"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, []string{"string", "null"}, props["name"].(map[string]any)["type"])
	assert.Equal(t, []string{"array", "null"}, props["tags"].(map[string]any)["type"])
	assert.Equal(t, []string{"object", "null"}, props["seller"].(map[string]any)["type"])

	_, err = ExtractionFormat{"x": []any{}}.JSONSchema()
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
