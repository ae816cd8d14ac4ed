// Package tasks implements the scheduled background tasks: the inactivity
// nudge for abandoned conversations and periodic database maintenance.
package tasks

import (
	"log/slog"
	"time"

	"github.com/him9495-payu/kaira/internal/config"
	"github.com/him9495-payu/kaira/internal/database"
	"github.com/him9495-payu/kaira/internal/flow"
)

// TaskDeps contains the dependencies shared by scheduled tasks. Profiles is
// whichever store serves user profiles, which is not always the SQLite
// store. Messenger is the channel nudges go out on. Now may be nil,
// defaulting to time.Now.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Profiles  database.ProfileStore
	Messenger flow.Messenger
	Flow      config.FlowConfig
	Now       func() time.Time
}
