package domain

import (
	"encoding/json"
	"fmt"
)

// Automation — записанный сценарий: стартовый URL, параметры и упорядоченный список узлов.
//
// Automation неизменяема во время выполнения: подстановка переменных
// создаёт копии строк, а не правит узлы.
type Automation struct {
	URL        string       `json:"url"`
	Parameters Parameters   `json:"parameters"`
	Nodes      []ActionNode `json:"nodes"`
}

// Parameters — объявленные параметры automation.
type Parameters struct {
	// InputParameters — параметры, которые передаёт вызывающая сторона.
	InputParameters map[string][]string `json:"input_parameters,omitempty"`

	// GeneratedParameters — параметры, которые появляются во время выполнения
	// (extraction, 2FA).
	GeneratedParameters map[string][]string `json:"generated_parameters,omitempty"`
}

// Validate проверяет automation целиком.
// Узлы валидируются при декодировании, здесь проверяется только то,
// что требует знания всей automation.
func (a *Automation) Validate() error {
	if a.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidAutomation)
	}
	for i := range a.Nodes {
		if a.Nodes[i].Action == nil {
			return fmt.Errorf("%w: node %d has no action", ErrInvalidAutomation, i)
		}
		if err := a.Nodes[i].Action.Validate(); err != nil {
			return fmt.Errorf("%w: node %d: %w", ErrInvalidAutomation, i, err)
		}
	}
	return nil
}

// ActionNode — узел automation: пауза перед выполнением и ровно одно действие.
type ActionNode struct {
	// BeforeSleepTime — пауза перед действием, в секундах.
	BeforeSleepTime float64 `json:"before_sleep_time"`

	// Action — одно из семейств: *InteractionAction, *ExtractionAction,
	// *AssertionAction, *Fetch2FAAction, *SleepAction, *HumanInLoopAction, *StateJumpAction.
	Action Action `json:"-"`
}

// nodeWire — представление узла в JSON: по одному полю на семейство.
type nodeWire struct {
	BeforeSleepTime float64            `json:"before_sleep_time"`
	Interaction     *InteractionAction `json:"interaction_action,omitempty"`
	Extraction      *ExtractionAction  `json:"extraction_action,omitempty"`
	Assertion       *AssertionAction   `json:"assertion_action,omitempty"`
	Fetch2FA        *Fetch2FAAction    `json:"fetch_2fa_action,omitempty"`
	Sleep           *SleepAction       `json:"sleep_action,omitempty"`
	HumanInLoop     *HumanInLoopAction `json:"human_in_loop_action,omitempty"`
	StateJump       *StateJumpAction   `json:"state_jump_action,omitempty"`
}

// UnmarshalJSON требует, чтобы в узле было ровно одно действие.
func (n *ActionNode) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	err := exactlyOne("action node",
		[]string{
			string(ActionKindInteraction), string(ActionKindExtraction), string(ActionKindAssertion),
			string(ActionKindFetch2FA), string(ActionKindSleep), string(ActionKindHumanInLoop),
			string(ActionKindStateJump),
		},
		[]bool{
			w.Interaction != nil, w.Extraction != nil, w.Assertion != nil,
			w.Fetch2FA != nil, w.Sleep != nil, w.HumanInLoop != nil,
			w.StateJump != nil,
		},
	)
	if err != nil {
		return err
	}
	if w.BeforeSleepTime < 0 {
		return fmt.Errorf("%w: before_sleep_time must be >= 0", ErrInvalidAction)
	}

	n.BeforeSleepTime = w.BeforeSleepTime
	switch {
	case w.Interaction != nil:
		n.Action = w.Interaction
	case w.Extraction != nil:
		n.Action = w.Extraction
	case w.Assertion != nil:
		n.Action = w.Assertion
	case w.Fetch2FA != nil:
		n.Action = w.Fetch2FA
	case w.Sleep != nil:
		n.Action = w.Sleep
	case w.HumanInLoop != nil:
		n.Action = w.HumanInLoop
	case w.StateJump != nil:
		n.Action = w.StateJump
	}
	return n.Action.Validate()
}

// MarshalJSON кодирует узел обратно в форму с одним полем на семейство.
func (n ActionNode) MarshalJSON() ([]byte, error) {
	w := nodeWire{BeforeSleepTime: n.BeforeSleepTime}
	switch a := n.Action.(type) {
	case *InteractionAction:
		w.Interaction = a
	case *ExtractionAction:
		w.Extraction = a
	case *AssertionAction:
		w.Assertion = a
	case *Fetch2FAAction:
		w.Fetch2FA = a
	case *SleepAction:
		w.Sleep = a
	case *HumanInLoopAction:
		w.HumanInLoop = a
	case *StateJumpAction:
		w.StateJump = a
	default:
		return nil, fmt.Errorf("%w: unsupported action type %T", ErrInvalidAction, n.Action)
	}
	return json.Marshal(w)
}
