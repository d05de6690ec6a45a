package terminal

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IssueReporter logs diagnostics and appends them to the terminal pane.
// With debug on, the root cause of every wrapped error argument follows on its own line.
type IssueReporter struct {
	term  *Log
	debug bool
	log   *zap.SugaredLogger
}

func NewIssueReporter(term *Log, debug bool, log *zap.SugaredLogger) *IssueReporter {
	return &IssueReporter{
		term:  term,
		debug: debug,
		log:   log,
	}
}

func (r *IssueReporter) Issue(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warn(msg)

	if r.term == nil {
		return
	}

	lines := []string{msg}
	if r.debug {
		lines = append(lines, causes(args)...)
	}
	r.term.Append(lines)
}

func causes(args []interface{}) []string {
	res := make([]string, 0)
	for _, arg := range args {
		err, ok := arg.(error)
		if !ok || err == nil {
			continue
		}
		if cause := errors.Cause(err); cause != err {
			res = append(res, "  cause: "+cause.Error())
		}
	}
	return res
}
