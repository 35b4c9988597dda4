// internal/stream/state.go
package stream

import "fmt"

// State is the streaming state.
//
//	Stopped --Start--> Streaming --Stop--> Stopped
//	Streaming --link fault--> Faulted --Stop--> Stopped
//	Streaming|Faulted --Halt--> Reconnecting --Resume--> Streaming
type State int32

const (
	Stopped State = iota
	Streaming
	Reconnecting
	Faulted
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Streaming:
		return "streaming"
	case Reconnecting:
		return "reconnecting"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}
