package consumer

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/richd0tcom/yaku/internal/domain"
)

// LogConsumer prints every record it is handed. It is the diagnostic line emitted
// before a record is persisted.
type LogConsumer struct {
	name   string
	logger logrus.FieldLogger
}

func NewLogConsumer(name string, logger logrus.FieldLogger) *LogConsumer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogConsumer{name: name, logger: logger}
}

func (l *LogConsumer) Process(records []domain.Record) error {
	if len(records) > 1 {
		l.logger.Infof("[%s] Processing batch of %d records", l.name, len(records))
	}
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		l.logger.Infof("[%s] Record: %s", l.name, raw)
	}
	return nil
}
