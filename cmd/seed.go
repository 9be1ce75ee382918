package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/vharuk/notify-gateway/internal/config"
	"github.com/vharuk/notify-gateway/internal/db"
	"github.com/vharuk/notify-gateway/internal/model"
)

var seedBilling bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo staff and subscribers (optionally billing fixtures)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		notifyDB, err := db.NewMySQLConnection(cfg.NotifyDB.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.NotifyDB.MaxOpenConns,
			MaxIdleConns:    cfg.NotifyDB.MaxIdleConns,
			ConnMaxLifetime: cfg.NotifyDB.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.NotifyDB.ConnMaxIdleTime,
			PingTimeout:     cfg.NotifyDB.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("notify mysql connect: %w", err)
		}
		defer notifyDB.Close()

		log.Println(">> Seeding demo staff...")
		if err := seedStaff(notifyDB); err != nil {
			return err
		}

		log.Println(">> Seeding demo subscribers...")
		if err := seedSubscribers(notifyDB); err != nil {
			return err
		}

		if seedBilling {
			billingDB, err := db.NewMySQLConnection(cfg.BillingDB.DSN, db.MySQLOpts{
				MaxOpenConns: cfg.BillingDB.MaxOpenConns,
				MaxIdleConns: cfg.BillingDB.MaxIdleConns,
				PingTimeout:  cfg.BillingDB.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("billing mysql connect: %w", err)
			}
			defer billingDB.Close()

			log.Println(">> Seeding billing fixtures...")
			if err := seedBillingFixtures(billingDB); err != nil {
				return err
			}
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedBilling, "billing", false, "also seed demo billing fixtures (dev only)")
}

// seedStaff inserts deterministic demo operators (idempotent).
func seedStaff(dbx *sqlx.DB) error {
	staff := []model.Staff{
		{
			Name:         "admin",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "support",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(5),
		},
		{
			Name:         "former-employee",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO staff
    (name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name           = VALUES(name),
    status         = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, s := range staff {
		if _, err := tx.Exec(q, s.Name, s.APIKey, s.Status, s.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert staff %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staff: %w", err)
	}
	return nil
}

// seedSubscribers links two demo billing accounts to fake Telegram chats.
func seedSubscribers(dbx *sqlx.DB) error {
	const q = `
INSERT INTO telegram_subscribers
    (chat_id, account_id, first_name, username, phone, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
    account_id = VALUES(account_id),
    updated_at = VALUES(updated_at)
`
	rows := []model.Subscriber{
		{ChatID: 100001, AccountID: 1, FirstName: "Ivan", Username: "ivan_demo", Phone: "+380501112233"},
		{ChatID: 100002, AccountID: 2, FirstName: "Olena", Username: "olena_demo", Phone: "+380671112233"},
	}
	for _, s := range rows {
		if _, err := dbx.Exec(q, s.ChatID, s.AccountID, s.FirstName, s.Username, s.Phone); err != nil {
			return fmt.Errorf("insert subscriber %d: %w", s.ChatID, err)
		}
	}
	return nil
}

// seedBillingFixtures populates a throwaway billing schema with enough rows
// to exercise the audience query. Never run against a real billing store.
func seedBillingFixtures(dbx *sqlx.DB) error {
	stmts := []string{
		`INSERT IGNORE INTO user_grp (grp_id, grp_name) VALUES
		    (1, 'city-north'), (2, 'city-south')`,
		`INSERT IGNORE INTO plans2 (id, name) VALUES
		    (10, '100Mbit'), (11, '1Gbit'), (12, '[1000]0.')`,
		`INSERT IGNORE INTO users (id, ip, fio, balance, grp, auth, comment) VALUES
		    (1, '10.0.0.1', 'Ivanenko Ivan', 250.00, 1, 'on', ''),
		    (2, '10.0.0.2', 'Petrenko Olena', 10.00, 1, 'on', 'vip'),
		    (3, '10.0.1.1', 'Shevchenko Taras', -5.00, 2, 'no', '')`,
		`INSERT IGNORE INTO users_trf (uid, packet, submoney) VALUES
		    (1, 10, 150.00), (2, 11, 300.00), (3, 12, 0.00)`,
		`INSERT IGNORE INTO dopvalues (parent_id, dopfield_id, field_value, time) VALUES
		    (1, 8, '0501112233', UNIX_TIMESTAMP() - 86400),
		    (1, 8, '+380501112233', UNIX_TIMESTAMP()),
		    (1, 13, 'AA:BB:CC:00:00:01', UNIX_TIMESTAMP()),
		    (1, 33, 'ONU-0001', UNIX_TIMESTAMP()),
		    (2, 8, '0671112233', UNIX_TIMESTAMP()),
		    (2, 13, '', UNIX_TIMESTAMP()),
		    (2, 33, 'ONU-0002', UNIX_TIMESTAMP()),
		    (3, 8, '0931112233', UNIX_TIMESTAMP()),
		    (3, 13, 'AA:BB:CC:00:00:03', UNIX_TIMESTAMP()),
		    (3, 33, '', UNIX_TIMESTAMP())`,
	}
	for _, q := range stmts {
		if _, err := dbx.Exec(q); err != nil {
			return fmt.Errorf("billing fixture: %w", err)
		}
	}
	return nil
}

func intptr(i int) *int { return &i }
