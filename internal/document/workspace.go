package document

import "sync"

type EventType string

const (
	SettingsUpdated EventType = "settings_updated"
	DocumentUpdated EventType = "document_updated"
)

// Event is delivered to observers after a mutation has been applied.
type Event struct {
	Type  EventType
	State State
}

// State is an immutable snapshot of a workspace.
type State struct {
	Title                string
	Body                 string
	FrontCoverPrompt     string
	BackCoverText        string
	UserProvidedCoverURL string
	Settings             Configuration
}

// Patch is a partial update of the text fields; nil fields are kept.
type Patch struct {
	Title                *string
	Body                 *string
	FrontCoverPrompt     *string
	BackCoverText        *string
	UserProvidedCoverURL *string
}

// Workspace is the live document of one studio session.
type Workspace struct {
	mu        sync.Mutex
	state     State
	observers []func(Event)
}

func NewWorkspace(title string) *Workspace {
	return &Workspace{state: State{Title: title, Settings: Defaults()}}
}

// Observe registers fn to be called after every mutation. Observers run
// synchronously, outside the workspace lock.
func (w *Workspace) Observe(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) Update(p Patch) State {
	return w.mutate(DocumentUpdated, func(s *State) {
		if p.Title != nil {
			s.Title = *p.Title
		}
		if p.Body != nil {
			s.Body = *p.Body
		}
		if p.FrontCoverPrompt != nil {
			s.FrontCoverPrompt = *p.FrontCoverPrompt
		}
		if p.BackCoverText != nil {
			s.BackCoverText = *p.BackCoverText
		}
		if p.UserProvidedCoverURL != nil {
			s.UserProvidedCoverURL = *p.UserProvidedCoverURL
		}
	})
}

// ApplySettings merges partial into the current configuration and returns
// the result.
func (w *Workspace) ApplySettings(partial Configuration) Configuration {
	st := w.mutate(SettingsUpdated, func(s *State) {
		s.Settings = Merge(s.Settings, partial)
	})
	return st.Settings
}

// ResetSettings restores the default configuration.
func (w *Workspace) ResetSettings() Configuration {
	st := w.mutate(SettingsUpdated, func(s *State) {
		s.Settings = Defaults()
	})
	return st.Settings
}

func (w *Workspace) ReplaceBody(markup string) {
	w.mutate(DocumentUpdated, func(s *State) {
		s.Body = markup
	})
}

func (w *Workspace) SetCoverTexts(front, back string) {
	w.mutate(DocumentUpdated, func(s *State) {
		s.FrontCoverPrompt = front
		s.BackCoverText = back
	})
}

func (w *Workspace) mutate(typ EventType, fn func(*State)) State {
	w.mu.Lock()
	fn(&w.state)
	snap := w.snapshotLocked()
	observers := append([]func(Event){}, w.observers...)
	w.mu.Unlock()

	for _, o := range observers {
		o(Event{Type: typ, State: snap})
	}
	return snap
}

func (w *Workspace) snapshotLocked() State {
	s := w.state
	s.Settings = w.state.Settings.Clone()
	return s
}
