package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// LogFormatter is a logrus.Formatter that forwards every entry to New Relic
// alongside the wrapped formatter's output. Unlike the stock nrlogrus
// formatter, the forwarded message carries all of the entry's fields.
//
// Based off of: https://github.com/newrelic/go-agent/blob/f1942e10f0819e2c854d5d7289eb0dc1c52a00af/v3/integrations/logcontext-v2/nrlogrus/formatter.go
type LogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

// NewLogFormatter wraps formatter. With a nil app the formatter is returned
// as is.
func NewLogFormatter(app *newrelic.Application, formatter logrus.Formatter) logrus.Formatter {
	if app == nil {
		return formatter
	}
	return &LogFormatter{
		app:       app,
		formatter: formatter,
	}
}

func (f *LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	out, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(bytes.TrimRight(out, "\n"))

	data := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  logMessage(e),
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	if txn != nil {
		txn.RecordLog(data)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(data)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// logMessage flattens an entry into a single line. The error field is pulled
// out on its own and the remaining fields are JSON encoded.
func logMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errString := "<nil>"
	fields := make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		err, isErr := v.(error)
		switch {
		case k == logrus.ErrorKey:
			if isErr {
				errString = fmt.Sprintf("%q", err.Error())
			}
		case isErr:
			// Most error types marshal to an empty object.
			fields[k] = err.Error()
		default:
			fields[k] = v
		}
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return e.Message
	}

	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errString, encoded)
}
