package statemachine

import raftcore "github.com/ghostfox/raftcore/raft"

// NullStateMachine is a disabled-backend mode the applier can still drive:
// Apply does nothing and returns a nil result, so commitIndex and
// lastApplied still advance and every CompletionHandle still resolves, with
// a nil result.
type NullStateMachine struct{}

func NewNullStateMachine() *NullStateMachine {
	return &NullStateMachine{}
}

func (NullStateMachine) Apply(commandType raftcore.CommandType, payload []byte) (interface{}, error) {
	return nil, nil
}
