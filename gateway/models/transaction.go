package models

import (
	"encoding/json"
	"fmt"
)

// Action types understood by the signer.
const (
	ActionFunctionCall = "FunctionCall"
	ActionTransfer     = "Transfer"
)

// FunctionCall carries the parameters of a contract method invocation.
// Gas and Deposit are raw integer strings (gas units and yocto respectively).
type FunctionCall struct {
	MethodName string          `json:"methodName"`
	Args       json.RawMessage `json:"args"`
	Gas        string          `json:"gas"`
	Deposit    string          `json:"deposit"`
}

// Action is one chain action inside a transaction. Exactly one of the
// parameter fields is meaningful depending on Type.
type Action struct {
	Type     string          `json:"type"`
	Params   *FunctionCall   `json:"params,omitempty"`
	Transfer *TransferAction `json:"transfer,omitempty"`
}

// TransferAction moves native currency; Deposit is raw yocto units.
type TransferAction struct {
	Deposit string `json:"deposit"`
}

// Transaction is an ordered list of actions against one receiver. Batches of
// transactions are signed and submitted atomically: a storage registration
// required by a downstream transfer must appear strictly before it, and a
// wrap action must precede whatever consumes the wrapped form.
type Transaction struct {
	SignerID   string   `json:"signerId"`
	ReceiverID string   `json:"receiverId"`
	Actions    []Action `json:"actions"`
}

// FunctionCallAction builds a FunctionCall action with JSON-encoded args.
func FunctionCallAction(method string, args any, gas, deposit string) (Action, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Action{}, fmt.Errorf("encode %s args: %w", method, err)
	}
	return Action{
		Type: ActionFunctionCall,
		Params: &FunctionCall{
			MethodName: method,
			Args:       raw,
			Gas:        gas,
			Deposit:    deposit,
		},
	}, nil
}

// ExecutionFailure is the failure marker nested in an outcome's status.
// ActionError keeps the chain-provided detail verbatim.
type ExecutionFailure struct {
	ActionError json.RawMessage `json:"ActionError,omitempty"`
}

// ExecutionStatus is the status field of a final execution outcome. Either
// SuccessValue or Failure is set, never both.
type ExecutionStatus struct {
	SuccessValue *string           `json:"SuccessValue,omitempty"`
	Failure      *ExecutionFailure `json:"Failure,omitempty"`
}

// ExecutionOutcome is the signer's per-transaction result.
type ExecutionOutcome struct {
	TransactionHash string          `json:"transactionHash,omitempty"`
	Status          ExecutionStatus `json:"status"`
}

// FailureDetail returns the chain failure detail if the outcome failed.
func (o ExecutionOutcome) FailureDetail() (string, bool) {
	if o.Status.Failure == nil || len(o.Status.Failure.ActionError) == 0 {
		return "", false
	}
	return string(o.Status.Failure.ActionError), true
}
