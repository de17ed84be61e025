package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the reseller store (SQLite).
var Migrations = migrate.NewGroup("reseller")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_reseller_accounts",
			Version: "20250601000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reseller_accounts (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    email             TEXT NOT NULL DEFAULT '',
    phone             TEXT NOT NULL DEFAULT '',
    status            INTEGER NOT NULL DEFAULT 0,
    approval_date     TEXT,
    approved_by       TEXT NOT NULL DEFAULT '',
    rejection_reason  TEXT NOT NULL DEFAULT '',
    suspended_at      TEXT,
    suspended_by      TEXT NOT NULL DEFAULT '',
    suspended_reason  TEXT NOT NULL DEFAULT '',
    grace_period_days INTEGER NOT NULL DEFAULT 0,
    version           INTEGER NOT NULL DEFAULT 1,
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reseller_accounts_created ON reseller_accounts (created_at, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS reseller_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_reseller_wallets",
			Version: "20250601000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				// Each ledger row carries the wallet state it produces. The
				// trigger applies that state in the same statement as the
				// insert, so a balance never changes without its transaction.
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reseller_wallets (
    id                  TEXT PRIMARY KEY,
    reseller_id         TEXT NOT NULL,
    currency            TEXT NOT NULL DEFAULT 'inr',
    balance             TEXT NOT NULL DEFAULT '0',
    credit_total        TEXT NOT NULL DEFAULT '0',
    debit_total         TEXT NOT NULL DEFAULT '0',
    last_transaction_at TEXT,
    version             INTEGER NOT NULL DEFAULT 0,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_wallets_reseller ON reseller_wallets (reseller_id);

CREATE TABLE IF NOT EXISTS reseller_wallet_transactions (
    id                 TEXT PRIMARY KEY,
    wallet_id          TEXT NOT NULL,
    reseller_id        TEXT NOT NULL,
    type               TEXT NOT NULL,
    currency           TEXT NOT NULL DEFAULT 'inr',
    amount             TEXT NOT NULL,
    balance_before     TEXT NOT NULL,
    balance_after      TEXT NOT NULL,
    credit_total_after TEXT NOT NULL,
    debit_total_after  TEXT NOT NULL,
    wallet_version     INTEGER NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    reference          TEXT NOT NULL DEFAULT '',
    created_at         TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reseller_wallet_txns_wallet ON reseller_wallet_transactions (wallet_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_wallet_txns_reference
    ON reseller_wallet_transactions (wallet_id, reference) WHERE reference <> '';

CREATE TRIGGER IF NOT EXISTS trg_reseller_wallet_post
AFTER INSERT ON reseller_wallet_transactions
BEGIN
    INSERT OR IGNORE INTO reseller_wallets (id, reseller_id, currency, created_at)
    VALUES (NEW.wallet_id, NEW.reseller_id, NEW.currency, NEW.created_at);

    UPDATE reseller_wallets SET
        balance = NEW.balance_after,
        credit_total = NEW.credit_total_after,
        debit_total = NEW.debit_total_after,
        last_transaction_at = NEW.created_at,
        version = NEW.wallet_version,
        updated_at = NEW.created_at
    WHERE id = NEW.wallet_id;
END;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TRIGGER IF EXISTS trg_reseller_wallet_post;
DROP TABLE IF EXISTS reseller_wallet_transactions;
DROP TABLE IF EXISTS reseller_wallets;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_reseller_validity",
			Version: "20250601000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reseller_validity (
    id                   TEXT PRIMARY KEY,
    reseller_id          TEXT NOT NULL,
    start_date           TEXT NOT NULL,
    end_date             TEXT NOT NULL,
    days                 INTEGER NOT NULL DEFAULT 0,
    last_wallet_id       TEXT NOT NULL DEFAULT '',
    last_recharge_amount TEXT,
    currency             TEXT NOT NULL DEFAULT 'inr',
    status               TEXT NOT NULL DEFAULT 'ACTIVE',
    version              INTEGER NOT NULL DEFAULT 1,
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_validity_reseller ON reseller_validity (reseller_id);
CREATE INDEX IF NOT EXISTS idx_reseller_validity_expiring ON reseller_validity (status, end_date);

CREATE TABLE IF NOT EXISTS reseller_validity_history (
    id                          TEXT PRIMARY KEY,
    record_id                   TEXT NOT NULL,
    reseller_id                 TEXT NOT NULL,
    wallet_id                   TEXT NOT NULL DEFAULT '',
    recharge_amount             TEXT,
    currency                    TEXT NOT NULL DEFAULT 'inr',
    previous_start              TEXT,
    previous_end                TEXT,
    new_start                   TEXT NOT NULL,
    new_end                     TEXT NOT NULL,
    days                        INTEGER NOT NULL DEFAULT 0,
    status                      TEXT NOT NULL,
    action                      TEXT NOT NULL,
    record_last_wallet_id       TEXT NOT NULL DEFAULT '',
    record_last_recharge_amount TEXT,
    record_version              INTEGER NOT NULL,
    record_created_at           TEXT NOT NULL,
    created_at                  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reseller_validity_history_reseller
    ON reseller_validity_history (reseller_id, created_at);

CREATE TRIGGER IF NOT EXISTS trg_reseller_validity_save
AFTER INSERT ON reseller_validity_history
BEGIN
    INSERT OR IGNORE INTO reseller_validity (id, reseller_id, start_date, end_date, created_at)
    VALUES (NEW.record_id, NEW.reseller_id, NEW.new_start, NEW.new_end, NEW.record_created_at);

    UPDATE reseller_validity SET
        start_date = NEW.new_start,
        end_date = NEW.new_end,
        days = NEW.days,
        last_wallet_id = NEW.record_last_wallet_id,
        last_recharge_amount = NEW.record_last_recharge_amount,
        currency = NEW.currency,
        status = NEW.status,
        version = NEW.record_version,
        updated_at = NEW.created_at
    WHERE id = NEW.record_id;
END;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TRIGGER IF EXISTS trg_reseller_validity_save;
DROP TABLE IF EXISTS reseller_validity_history;
DROP TABLE IF EXISTS reseller_validity;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_reseller_number_limits",
			Version: "20250601000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reseller_number_limits (
    id                  TEXT PRIMARY KEY,
    reseller_id         TEXT NOT NULL,
    max_virtual_numbers INTEGER NOT NULL DEFAULT 0,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_number_limits_reseller ON reseller_number_limits (reseller_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS reseller_number_limits`)
				return err
			},
		},
	)
}
