/*
Package processor orchestrates the three money-movement operations: deposit,
withdrawal and transfer.

Each operation runs as validate -> evaluate fraud rules -> atomic unit of
work -> committed outcome. The unit of work covers the balance mutation(s)
and the transaction record together: a reader never observes a wallet
debited without the matching credit, and a failed commit rolls back both.

Usage:

	svc := processor.NewService(store, engine, alerts, cache, metrics, processor.Config{})

	outcome, err := svc.Deposit(ctx, processor.DepositRequest{
	    UserID:   42,
	    Amount:   decimal.NewFromInt(100),
	    Currency: "USD",
	})

Concurrency:

Wallet rows are locked in ascending user-ID order and carry an optimistic
version check. A commit rejected because of a conflicting concurrent write
surfaces as repositories.ErrTransientConflict; the service retries the whole
operation (fresh balances, fresh fraud evaluation) a bounded number of times
before returning the error.

Fraud flagging:

A flagged operation still completes. The flag lands on the committed record
and an alert is dispatched after commit, fire-and-forget. Fraud evaluation
failures never abort an operation.
*/
package processor
