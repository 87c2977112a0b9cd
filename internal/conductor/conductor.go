package conductor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/types"
)

type OperationType int

const (
	ResyncBrokers OperationType = iota
	RefreshQuotes
	RefreshAccountBalances
)

func (op OperationType) String() string {
	switch op {
	case ResyncBrokers:
		return "resync_brokers"
	case RefreshQuotes:
		return "refresh_quotes"
	case RefreshAccountBalances:
		return "refresh_account_balances"
	default:
		return "unknown"
	}
}

// Orchestrator is the public surface of the conductor. All operations return
// a ConductorError report; partial and total failure differ only in its
// contents, never in control flow.
type Orchestrator interface {
	ExecuteOperation(ctx context.Context, op OperationType, fastMode bool, retryCount int) ConductorError
	RefreshTheWorld(ctx context.Context, fastMode bool, retryCount int) ConductorError
	RefreshAccountBalances(ctx context.Context, retryCount int) ConductorError
	RefreshAllQuotes(ctx context.Context, retryCount int) ConductorError
}

// Binding attaches a broker name to the adapter serving it. Live and
// simulated adapters are interchangeable; the conductor never knows which it
// is driving.
type Binding struct {
	Name   string
	Broker interfaces.Broker
}

// Conductor drives broker synchronization across many accounts with
// configurable concurrency, partial-failure isolation, and bounded retries.
type Conductor struct {
	brokers []Binding
	ops     interfaces.AccountOperations

	// Fixed inter-pass backoffs. Overridable in tests.
	fastBackoff time.Duration
	slowBackoff time.Duration

	// Completed dispatch counter, shared across passes, logging only.
	progress atomic.Int64
}

var _ Orchestrator = (*Conductor)(nil)

func New(brokers []Binding, ops interfaces.AccountOperations) *Conductor {
	return &Conductor{
		brokers:     brokers,
		ops:         ops,
		fastBackoff: 2 * time.Second,
		slowBackoff: 10 * time.Second,
	}
}

// RefreshTheWorld resynchronizes every account of every broker. Outside fast
// mode it first asks adapters that support it to refresh their account list
// broker-side.
func (c *Conductor) RefreshTheWorld(ctx context.Context, fastMode bool, retryCount int) ConductorError {
	if !fastMode {
		for _, b := range c.brokers {
			refresher, ok := b.Broker.(interfaces.AccountListRefresher)
			if !ok {
				continue
			}
			if err := refresher.RefreshAccountList(ctx); err != nil {
				logger.Warn(ctx, "Broker account-list refresh failed", "broker", b.Name, "error", err)
			}
		}
	}
	return c.ExecuteOperation(ctx, ResyncBrokers, fastMode, retryCount)
}

// RefreshAccountBalances rolls up balances for every account, fast mode.
func (c *Conductor) RefreshAccountBalances(ctx context.Context, retryCount int) ConductorError {
	return c.ExecuteOperation(ctx, RefreshAccountBalances, true, retryCount)
}

// RefreshAllQuotes refreshes quotes for every account, fast mode.
func (c *Conductor) RefreshAllQuotes(ctx context.Context, retryCount int) ConductorError {
	return c.ExecuteOperation(ctx, RefreshQuotes, true, retryCount)
}

type accountWork struct {
	broker  string
	account types.Account
}

// ExecuteOperation runs the operation over every account in up to
// retryCount+1 passes. Pass one covers the full account set; later passes
// cover only the accounts that failed the pass before. The report is built
// from the last pass's unresolved failures.
func (c *Conductor) ExecuteOperation(ctx context.Context, op OperationType, fastMode bool, retryCount int) ConductorError {
	timer := logger.StartOperation(ctx, "conductor.ExecuteOperation",
		"operation", op.String(),
		"fast_mode", fastMode,
		"retry_count", retryCount,
	)
	ctx = timer.GetContext()

	work, enumFailures := c.enumerateAccounts(ctx)
	logger.Info(ctx, "Accounts enumerated",
		"operation", op.String(),
		"accounts", len(work),
		"brokers", len(c.brokers),
		"enumeration_failures", len(enumFailures),
	)

	var failures []AccountFailure
	for pass := 0; pass <= retryCount && len(work) > 0; pass++ {
		failures = c.runPass(ctx, op, work, fastMode, pass)
		if len(failures) == 0 || pass == retryCount {
			break
		}

		backoff := c.slowBackoff
		if fastMode {
			backoff = c.fastBackoff
		}
		logger.Info(ctx, "Retrying failed accounts",
			"operation", op.String(),
			"pass", pass+1,
			"remaining", len(failures),
			"backoff", backoff.String(),
		)
		time.Sleep(backoff)

		// Fresh snapshot per pass: accounts that succeeded never reappear.
		next := make([]accountWork, 0, len(failures))
		for _, f := range failures {
			next = append(next, accountWork{broker: f.Account.Broker, account: f.Account})
		}
		work = next
	}

	report := newConductorError(append(failures, enumFailures...))
	timer.End("failures", len(failures)+len(enumFailures))
	return report
}

// enumerateAccounts fans out one GetAccounts call per broker, once up front.
// A broker whose listing fails contributes a single synthetic failure carrying
// the broker name; its accounts cannot take part in any pass.
func (c *Conductor) enumerateAccounts(ctx context.Context) ([]accountWork, []AccountFailure) {
	type listing struct {
		broker   string
		accounts []types.Account
		err      error
	}

	results := make([]listing, len(c.brokers))
	var wg sync.WaitGroup
	for i, b := range c.brokers {
		wg.Add(1)
		go func(i int, b Binding) {
			defer wg.Done()
			accounts, err := b.Broker.GetAccounts(ctx)
			results[i] = listing{broker: b.Name, accounts: accounts, err: err}
		}(i, b)
	}
	wg.Wait()

	var work []accountWork
	var failures []AccountFailure
	for _, r := range results {
		if r.err != nil {
			failures = append(failures, AccountFailure{
				Account: types.Account{ID: r.broker, Name: r.broker, Broker: r.broker},
				Err:     fmt.Errorf("list accounts: %w", r.err),
			})
			continue
		}
		for _, a := range r.accounts {
			a.Broker = r.broker
			work = append(work, accountWork{broker: r.broker, account: a})
		}
	}
	return work, failures
}

// runPass executes one retry pass. Fast mode launches one task per account
// across all brokers; otherwise brokers run concurrently with accounts
// strictly serial inside each broker, in enumeration order.
func (c *Conductor) runPass(ctx context.Context, op OperationType, work []accountWork, fastMode bool, pass int) []AccountFailure {
	var mu sync.Mutex
	var failures []AccountFailure
	record := func(w accountWork, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		failures = append(failures, AccountFailure{Account: w.account, Err: err})
		mu.Unlock()
	}

	var wg sync.WaitGroup
	if fastMode {
		for _, w := range work {
			wg.Add(1)
			go func(w accountWork) {
				defer wg.Done()
				record(w, c.dispatch(ctx, op, w, pass))
			}(w)
		}
	} else {
		byBroker := make(map[string][]accountWork)
		var order []string
		for _, w := range work {
			if _, seen := byBroker[w.broker]; !seen {
				order = append(order, w.broker)
			}
			byBroker[w.broker] = append(byBroker[w.broker], w)
		}
		for _, name := range order {
			wg.Add(1)
			go func(batch []accountWork) {
				defer wg.Done()
				for _, w := range batch {
					record(w, c.dispatch(ctx, op, w, pass))
				}
			}(byBroker[name])
		}
	}
	wg.Wait()
	return failures
}

// dispatch runs one account's operation. Every error, panics included, is
// converted into a recorded failure; nothing escapes to abort sibling
// accounts in the pass.
func (c *Conductor) dispatch(ctx context.Context, op OperationType, w accountWork, pass int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()

	switch op {
	case ResyncBrokers:
		err = c.ops.Resync(ctx, w.broker, w.account)
	case RefreshQuotes:
		err = c.ops.RefreshQuotes(ctx, w.broker, w.account)
	case RefreshAccountBalances:
		err = c.ops.RefreshBalances(ctx, w.broker, w.account)
	default:
		err = fmt.Errorf("unknown operation %d", op)
	}

	done := c.progress.Add(1)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	logger.SyncOutcome(ctx, w.broker, w.account.ID, op.String(), status,
		"pass", pass,
		"completed", done,
	)
	return err
}
