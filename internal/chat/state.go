package chat

import "time"

// State is the whole session: every chat, newest created first, plus the active one.
type State struct {
	Chats      []Chat  `json:"chats"`
	ActiveChat *string `json:"activeChat"`
}

func (s *State) index(id string) int {
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a pointer into s.Chats; it is invalidated by Prepend and Remove.
func (s *State) Find(id string) *Chat {
	if i := s.index(id); i >= 0 {
		return &s.Chats[i]
	}
	return nil
}

func (s *State) Prepend(c Chat) {
	s.Chats = append([]Chat{c}, s.Chats...)
}

// Replace overwrites the chat with the same id. It reports false when no such chat exists.
func (s *State) Replace(c Chat) bool {
	i := s.index(c.ID)
	if i < 0 {
		return false
	}
	s.Chats[i] = c
	return true
}

func (s *State) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.Chats = append(s.Chats[:i], s.Chats[i+1:]...)
	return true
}

// Delete removes a chat. When it was the active one, the first remaining chat
// becomes active, or a fresh default chat is created if none remain.
func (s *State) Delete(id string, now time.Time) bool {
	wasActive := s.ActiveID() == id
	if !s.Remove(id) {
		return false
	}
	if !wasActive {
		return true
	}
	if len(s.Chats) > 0 {
		s.SetActive(s.Chats[0].ID)
		return true
	}
	c := NewChat(now)
	s.Chats = []Chat{c}
	s.SetActive(c.ID)
	return true
}

func (s *State) SetActive(id string) {
	s.ActiveChat = &id
}

func (s State) ActiveID() string {
	if s.ActiveChat == nil {
		return ""
	}
	return *s.ActiveChat
}

func (s *State) Active() *Chat {
	if s.ActiveChat == nil {
		return nil
	}
	return s.Find(*s.ActiveChat)
}

// Resolve repairs a freshly loaded state. An empty state gets one default
// chat; a null or dangling active id falls back to the first chat. It reports
// whether a chat was created.
func (s *State) Resolve(now time.Time) bool {
	if len(s.Chats) == 0 {
		c := NewChat(now)
		s.Chats = []Chat{c}
		s.SetActive(c.ID)
		return true
	}
	if s.Active() == nil {
		s.SetActive(s.Chats[0].ID)
	}
	return false
}

// Clone deep-copies the state.
func (s *State) Clone() State {
	out := State{Chats: make([]Chat, len(s.Chats))}
	for i, c := range s.Chats {
		out.Chats[i] = c.Clone()
	}
	if s.ActiveChat != nil {
		id := *s.ActiveChat
		out.ActiveChat = &id
	}
	return out
}
