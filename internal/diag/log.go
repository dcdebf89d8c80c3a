package diag

import (
	"context"
	"log/slog"

	"github.com/sweeney/tea-sensor/internal/logging"
	"github.com/sweeney/tea-sensor/internal/machine"
)

// LogObserver writes one line per transition.
type LogObserver[M any] struct {
	log   *logging.Logger
	level slog.Level
}

// NewLogObserver logs transitions of the machine called name at level.
func NewLogObserver[M any](log *logging.Logger, name string, level slog.Level) *LogObserver[M] {
	return &LogObserver[M]{
		log:   log.With("machine", name),
		level: level,
	}
}

// StateChanged implements machine.Observer.
func (o *LogObserver[M]) StateChanged(from, to machine.State[M]) {
	o.log.Log(context.Background(), o.level, "from "+from.Name()+" to "+to.Name(),
		"from", from.Name(),
		"to", to.Name(),
	)
}
