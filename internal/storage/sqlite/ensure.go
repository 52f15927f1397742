package sqlite

import (
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

var (
	_ session.Store                = (*SessionStore)(nil)
	_ interview.QuestionRepository = (*QuestionStore)(nil)
	_ interview.EventPublisher     = (*EventLog)(nil)
)
