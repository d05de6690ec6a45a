package terminal

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/defs"
)

const queryPosition = "pos"

// Poller fetches the server log lines past the terminal offset
type Poller struct {
	lock     sync.Mutex
	client   apiclient.APIClient
	term     *Log
	resource string
	issues   *IssueReporter
}

func NewPoller(client apiclient.APIClient, term *Log, resource string, issues *IssueReporter) *Poller {
	return &Poller{
		client:   client,
		term:     term,
		resource: resource,
		issues:   issues,
	}
}

// Update requests the lines after the current offset and appends them. Updates are
// serialized so the same suffix is never appended twice.
func (p *Poller) Update(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	query := url.Values{}
	query.Set(queryPosition, strconv.Itoa(p.term.NextOffset()))

	env, err := p.client.Get(ctx, defs.ResourceLogs, p.resource, query)
	if err != nil {
		p.issues.Issue("ERROR updateTerminal: log request failed: %v", err)
		return err
	}

	// already reported by the client
	if env.Failed() {
		return nil
	}

	lines, err := apiclient.DecodeLog(env)
	if err != nil {
		p.issues.Issue("ERROR updateTerminal: Cannot get log data from callback! %v", err)
		return err
	}

	p.term.AppendRemote(lines)
	return nil
}
