package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the reseller store.
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
    status            BOOLEAN NOT NULL DEFAULT FALSE,
    approval_date     TIMESTAMPTZ,
    approved_by       TEXT NOT NULL DEFAULT '',
    rejection_reason  TEXT NOT NULL DEFAULT '',
    suspended_at      TIMESTAMPTZ,
    suspended_by      TEXT NOT NULL DEFAULT '',
    suspended_reason  TEXT NOT NULL DEFAULT '',
    grace_period_days INT NOT NULL DEFAULT 0,
    version           BIGINT NOT NULL DEFAULT 1,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reseller_accounts_created ON reseller_accounts (created_at, id);
CREATE INDEX IF NOT EXISTS idx_reseller_accounts_email ON reseller_accounts (email);
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
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reseller_wallets (
    id                  TEXT PRIMARY KEY,
    reseller_id         TEXT NOT NULL,
    currency            TEXT NOT NULL DEFAULT 'inr',
    balance             NUMERIC NOT NULL DEFAULT 0,
    credit_total        NUMERIC NOT NULL DEFAULT 0,
    debit_total         NUMERIC NOT NULL DEFAULT 0,
    last_transaction_at TIMESTAMPTZ,
    version             BIGINT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_reseller_wallets_balance CHECK (balance >= 0)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_wallets_reseller ON reseller_wallets (reseller_id);

CREATE TABLE IF NOT EXISTS reseller_wallet_transactions (
    id             TEXT PRIMARY KEY,
    wallet_id      TEXT NOT NULL REFERENCES reseller_wallets (id),
    reseller_id    TEXT NOT NULL,
    type           TEXT NOT NULL,
    currency       TEXT NOT NULL DEFAULT 'inr',
    amount         NUMERIC NOT NULL,
    balance_before NUMERIC NOT NULL,
    balance_after  NUMERIC NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    reference      TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_reseller_wallet_transactions_amount CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS idx_reseller_wallet_txns_wallet ON reseller_wallet_transactions (wallet_id, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_wallet_txns_reference
    ON reseller_wallet_transactions (wallet_id, reference) WHERE reference <> '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
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
    start_date           TIMESTAMPTZ NOT NULL,
    end_date             TIMESTAMPTZ NOT NULL,
    days                 INT NOT NULL DEFAULT 0,
    last_wallet_id       TEXT NOT NULL DEFAULT '',
    last_recharge_amount NUMERIC,
    currency             TEXT NOT NULL DEFAULT 'inr',
    status               TEXT NOT NULL DEFAULT 'ACTIVE',
    version              BIGINT NOT NULL DEFAULT 1,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reseller_validity_reseller ON reseller_validity (reseller_id);
CREATE INDEX IF NOT EXISTS idx_reseller_validity_expiring ON reseller_validity (status, end_date);

CREATE TABLE IF NOT EXISTS reseller_validity_history (
    id              TEXT PRIMARY KEY,
    record_id       TEXT NOT NULL,
    reseller_id     TEXT NOT NULL,
    wallet_id       TEXT NOT NULL DEFAULT '',
    recharge_amount NUMERIC,
    currency        TEXT NOT NULL DEFAULT 'inr',
    previous_start  TIMESTAMPTZ,
    previous_end    TIMESTAMPTZ,
    new_start       TIMESTAMPTZ NOT NULL,
    new_end         TIMESTAMPTZ NOT NULL,
    days            INT NOT NULL DEFAULT 0,
    status          TEXT NOT NULL,
    action          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reseller_validity_history_reseller
    ON reseller_validity_history (reseller_id, created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
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
    max_virtual_numbers INT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_reseller_number_limits_max CHECK (max_virtual_numbers >= 0)
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
