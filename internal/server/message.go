package server

import (
	"fmt"

	"github.com/cephinstaller/envstep/internal/environment"
)

// Client message types
const (
	TypeSource     = "source"
	TypeVersion    = "version"
	TypeCredential = "credential"
	TypeField      = "field"
	TypeAdvance    = "advance"
)

// Server message types
const (
	TypeState    = "state"
	TypeComplete = "complete"
	TypeError    = "error"
)

// ClientMessage is a JSON message sent by the web front end.
type ClientMessage struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// ToEvent converts the message into a step event.
func (m ClientMessage) ToEvent() (environment.Event, error) {
	switch m.Type {
	case TypeSource:
		return environment.SourceChanged{Source: m.Value}, nil
	case TypeVersion:
		return environment.VersionChanged{Version: m.Value}, nil
	case TypeCredential:
		f := environment.Field(m.Field)
		if f != environment.FieldUsername && f != environment.FieldPassword {
			return nil, fmt.Errorf("credential field must be %q or %q, got %q",
				environment.FieldUsername, environment.FieldPassword, m.Field)
		}
		return environment.CredentialChanged{Field: f, Value: m.Value}, nil
	case TypeField:
		f := environment.Field(m.Field)
		if !environment.IsSimpleField(f) {
			return nil, fmt.Errorf("unknown field %q", m.Field)
		}
		return environment.FieldChanged{Field: f, Value: m.Value}, nil
	case TypeAdvance:
		return environment.AdvanceRequested{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
}

// StateView is the observable state of a step as sent to the front end.
// The password is always masked.
type StateView struct {
	environment.Snapshot
	Phase               string   `json:"phase"`
	Versions            []string `json:"versions"`
	CredentialsRequired bool     `json:"credentialsRequired"`
	ErrorKind           string   `json:"errorKind,omitempty"`
}

// ServerMessage is a JSON message sent to the web front end.
type ServerMessage struct {
	Type     string                `json:"type"`
	State    *StateView            `json:"state,omitempty"`
	Snapshot *environment.Snapshot `json:"snapshot,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func newStateMessage(step *environment.Step) ServerMessage {
	s := step.State()
	view := &StateView{
		Snapshot:            s.Snapshot().Redacted(),
		Phase:               step.Phase().String(),
		Versions:            s.Versions(),
		CredentialsRequired: s.CredentialsRequired(),
	}
	if s.HasError() {
		view.ErrorKind = s.ErrorKind().String()
	}
	return ServerMessage{Type: TypeState, State: view}
}

func newCompleteMessage(snap environment.Snapshot) ServerMessage {
	return ServerMessage{Type: TypeComplete, Snapshot: &snap}
}

func newErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: TypeError, Error: err.Error()}
}
