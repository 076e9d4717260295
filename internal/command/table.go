// Package command defines the static command table and the dispatcher that
// turns qualified recognitions into command events.
package command

import (
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
)

// Action codes.
const (
	ActionBalance      = "balance"
	ActionTransactions = "transactions"
	ActionTransfer     = "transfer"
	ActionBills        = "bills"
	ActionHelp         = "help"
	ActionEmergency    = "emergency"
	ActionConfirm      = "confirm"
)

// ListeningPrompt is spoken when a wake phrase arrives with no command.
const ListeningPrompt = "I'm listening. What would you like me to help you with?"

// NotUnderstood returns the response for a command that matched nothing.
func NotUnderstood(cmd string) string {
	return fmt.Sprintf("I heard \"%s\" but didn't understand. Try saying: balance, transactions, transfer, bills, or help.", cmd)
}

// Definition maps a gesture and/or voice keywords to an action.
type Definition struct {
	Action      string        `json:"action"`
	Gesture     gesture.Label `json:"gesture"`
	Keywords    []string      `json:"keywords,omitempty"`
	Phrases     []string      `json:"phrases,omitempty"`
	Response    string        `json:"response"`
	Description string        `json:"description"`
	Urgent      bool          `json:"urgent"`
}

// Table is an immutable, ordered set of definitions. Keyword categories are
// matched in table order.
type Table struct {
	defs      []Definition
	byAction  map[string]int
	byGesture map[gesture.Label]int
}

// NewTable validates defs and builds a Table. Actions must be unique and a
// gesture may be bound to at most one action.
func NewTable(defs []Definition) (*Table, error) {
	t := &Table{
		defs:      make([]Definition, 0, len(defs)),
		byAction:  make(map[string]int, len(defs)),
		byGesture: make(map[gesture.Label]int),
	}

	for _, d := range defs {
		if d.Action == "" {
			return nil, fmt.Errorf("definition has empty action")
		}
		if _, dup := t.byAction[d.Action]; dup {
			return nil, fmt.Errorf("duplicate action %q", d.Action)
		}
		if d.Gesture != gesture.None {
			if other, dup := t.byGesture[d.Gesture]; dup {
				return nil, fmt.Errorf("gesture %s bound to both %q and %q", d.Gesture, t.defs[other].Action, d.Action)
			}
			t.byGesture[d.Gesture] = len(t.defs)
		}

		d.Keywords = lowerAll(d.Keywords)
		d.Phrases = lowerAll(d.Phrases)
		t.byAction[d.Action] = len(t.defs)
		t.defs = append(t.defs, d)
	}

	return t, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Definitions returns a copy of the table in order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	copy(out, t.defs)
	return out
}

// Lookup returns the definition for an action code.
func (t *Table) Lookup(action string) (Definition, bool) {
	i, ok := t.byAction[action]
	if !ok {
		return Definition{}, false
	}
	return t.defs[i], true
}

// ForGesture returns the definition bound to a gesture label.
func (t *Table) ForGesture(label gesture.Label) (Definition, bool) {
	i, ok := t.byGesture[label]
	if !ok {
		return Definition{}, false
	}
	return t.defs[i], true
}

// DefaultDefinitions returns the stock command set.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Action:      ActionBalance,
			Gesture:     gesture.OpenPalm,
			Keywords:    []string{"balance", "money"},
			Phrases:     []string{"check balance", "show balance", "account balance", "balance", "money"},
			Response:    "Your current balance is $2,847.32",
			Description: "Check account balance",
		},
		{
			Action:      ActionTransactions,
			Gesture:     gesture.OneFinger,
			Keywords:    []string{"transaction", "history"},
			Phrases:     []string{"recent transactions", "transactions", "history"},
			Response:    "Your last transaction was a $45.67 payment to Metro Grocery on December 20th",
			Description: "Show recent transactions",
		},
		{
			Action:      ActionTransfer,
			Gesture:     gesture.TwoFingers,
			Keywords:    []string{"transfer", "send"},
			Phrases:     []string{"transfer money", "transfer", "send money"},
			Response:    "I can help you transfer money. Please specify the amount and recipient.",
			Description: "Transfer money",
		},
		{
			Action:      ActionBills,
			Gesture:     gesture.FourFingers,
			Keywords:    []string{"bill", "pay"},
			Phrases:     []string{"pay bills", "bills"},
			Response:    "You have 2 pending bills: Electric bill $89.45 and Internet $59.99",
			Description: "Pay bills",
		},
		{
			Action:      ActionHelp,
			Gesture:     gesture.ThreeFingers,
			Keywords:    []string{"help", "what can you do"},
			Phrases:     []string{"help"},
			Response:    "I can help you with: check balance, recent transactions, transfer money, pay bills, or emergency lock.",
			Description: "List available commands",
		},
		{
			Action:      ActionEmergency,
			Gesture:     gesture.ClosedFist,
			Keywords:    []string{"emergency", "lock"},
			Phrases:     []string{"emergency lock", "lock account", "emergency"},
			Response:    "Emergency lock activated! Your account has been secured immediately.",
			Description: "Lock the account immediately",
			Urgent:      true,
		},
		{
			Action:      ActionConfirm,
			Gesture:     gesture.ThumbsUp,
			Response:    "Action confirmed successfully!",
			Description: "Confirm the current action",
		},
	}
}

// DefaultTable returns the stock command table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return t
}
