// Package audit фоновая сверка журнала: каждая транзакция должна иметь ровно одну проводку DEBIT и одну CREDIT
// на правильных счетах и на полную сумму.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout  = 3 * time.Second
	defaultInterval        = time.Minute
	defaultBatchSize  uint = 100
	defaultWorkers    uint = 4
)

var ErrNoTransactions = errors.New("no transactions to audit")

// Processor постранично проверяет транзакции в порядке возрастания id. Хранилище не изменяет.
type Processor struct {
	svs       Servicer
	l         *logrus.Entry
	batchSize uint
	workers   uint
	interval  time.Duration
	// cursor id последней проверенной транзакции.
	cursor int64
}

func New(svs Servicer, l *logrus.Logger) *Processor {
	return &Processor{
		svs: svs,
		l: l.WithFields(logrus.Fields{
			"component": "audit",
			"module":    "processor",
		}),
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
		interval:  defaultInterval,
	}
}

// SetBatchSize устанавливает кол-во транзакций, проверяемых за одну итерацию. Ноль означает одну транзакцию.
func (p *Processor) SetBatchSize(size uint) *Processor {
	p.batchSize = max(size, 1)
	return p
}

// SetWorkers устанавливает кол-во воркеров сверки.
func (p *Processor) SetWorkers(workers uint) *Processor {
	p.workers = max(workers, 1)
	return p
}

// SetInterval пауза между проходами, когда новых транзакций нет.
func (p *Processor) SetInterval(interval time.Duration) *Processor {
	p.interval = interval
	return p
}

// Run проверяет страницы транзакций до тех пор, пока они есть, затем засыпает на interval. Работает до отмены
// контекста.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"batchSize": p.batchSize,
		"workers":   p.workers,
		"interval":  p.interval,
	}).Info("Starting")

	for {
		_, err := p.process(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNoTransactions) && !errors.Is(err, context.Canceled) {
			p.l.WithError(err).Error("process error")
		}
		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-time.After(p.interval):
		}
	}
}

// Violation нарушение двойной записи для одной транзакции.
type Violation struct {
	TransactionID string
	Reason        string
}

// process проверяет одну страницу транзакций после курсора и сдвигает курсор. Возвращает найденные нарушения или
// ErrNoTransactions, если проверять нечего.
func (p *Processor) process(ctx context.Context) ([]Violation, error) {
	txs, err := p.produce(ctx)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	ids := make([]string, len(txs))
	for i := range txs {
		ids[i] = txs[i].TransactionID
	}

	entriesCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()
	entries, err := p.svs.LedgerEntries(entriesCtx, ids)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	violations := p.runWorkers(ctx, txs, entries)
	for _, v := range violations {
		p.l.WithFields(logrus.Fields{
			"transactionID": v.TransactionID,
		}).Error(v.Reason)
	}

	if err := ctx.Err(); err != nil {
		// курсор не двигаем, часть страницы могла остаться непроверенной.
		return violations, err //nolint:wrapcheck
	}
	p.cursor = txs[len(txs)-1].ID
	p.l.WithFields(logrus.Fields{
		"checked":    len(txs),
		"violations": len(violations),
		"cursor":     p.cursor,
	}).Debug("page audited")
	return violations, nil
}

type task struct {
	tx      *domain.Transaction
	entries []domain.LedgerEntry
}

// runWorkers раздает транзакции воркерам и собирает найденные нарушения (fan-out/fan-in).
func (p *Processor) runWorkers(
	ctx context.Context,
	txs []domain.Transaction,
	entries map[string][]domain.LedgerEntry,
) []Violation {
	taskCh := make(chan task, len(txs))
	for i := range txs {
		taskCh <- task{tx: &txs[i], entries: entries[txs[i].TransactionID]}
	}
	close(taskCh)

	resultCh := make(chan Violation, len(txs)*4) //nolint:mnd
	wg := new(sync.WaitGroup)
	wg.Add(int(p.workers)) // nolint:gosec

	for range p.workers {
		go p.worker(ctx, wg, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	var violations []Violation
	for v := range resultCh {
		violations = append(violations, v)
	}
	return violations
}

func (p *Processor) worker(ctx context.Context, wg *sync.WaitGroup, taskCh <-chan task, resultCh chan<- Violation) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-taskCh:
			if !ok {
				return
			}
			for _, reason := range verify(t.tx, t.entries) {
				resultCh <- Violation{TransactionID: t.tx.TransactionID, Reason: reason}
			}
		}
	}
}

// verify сверяет транзакцию с её проводками.
func verify(tx *domain.Transaction, entries []domain.LedgerEntry) []string {
	var (
		reasons []string
		debits  []domain.LedgerEntry
		credits []domain.LedgerEntry
	)
	for _, e := range entries {
		switch e.EntryType {
		case domain.EntryTypeDebit:
			debits = append(debits, e)
		case domain.EntryTypeCredit:
			credits = append(credits, e)
		default:
			reasons = append(reasons, fmt.Sprintf("unknown entry type `%s`", e.EntryType))
		}
	}

	if len(debits) != 1 || len(credits) != 1 {
		return append(reasons, fmt.Sprintf("expected one debit and one credit, got %d and %d",
			len(debits), len(credits)))
	}

	debit, credit := debits[0], credits[0]
	if debit.AccountID != tx.FromAccountID {
		reasons = append(reasons, fmt.Sprintf("debit account %d, transaction from %d", debit.AccountID, tx.FromAccountID))
	}
	if credit.AccountID != tx.ToAccountID {
		reasons = append(reasons, fmt.Sprintf("credit account %d, transaction to %d", credit.AccountID, tx.ToAccountID))
	}
	for _, e := range []domain.LedgerEntry{debit, credit} {
		if !e.Amount.Equal(tx.Amount) {
			reasons = append(reasons, fmt.Sprintf("%s amount %s, transaction amount %s", e.EntryType, e.Amount, tx.Amount))
		}
		if e.AssetTypeID != tx.AssetTypeID {
			reasons = append(reasons, fmt.Sprintf("%s asset %d, transaction asset %d", e.EntryType, e.AssetTypeID, tx.AssetTypeID))
		}
	}
	return reasons
}

// produce получает следующую страницу транзакций после курсора.
func (p *Processor) produce(ctx context.Context) ([]domain.Transaction, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	txs, err := p.svs.TransactionsAfter(produceCtx, p.cursor, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}
	return txs, nil
}
