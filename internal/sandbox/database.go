package sandbox

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bankctl-dev/bankctl/internal/auth"
)

// Demo credentials of the seeded accounts
const (
	DemoPassword = "sandbox-password"

	// DemoTwoFactorSecret is the TOTP secret of the seeded "bob" account
	DemoTwoFactorSecret = "JBSWY3DPEHPK3PXP"
)

// memoryDSN is used when no database URL is configured
const memoryDSN = ":memory:"

// initDatabase opens the sandbox database. An in-memory database lives on a
// single connection that is never recycled.
func initDatabase(dsn string, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 4
		maxIdleConns    = 2
		connMaxLifetime = 300 // 5 minutes
		busyTimeout     = 5000
	)

	inMemory := dsn == "" || dsn == memoryDSN
	if inMemory {
		dsn = memoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stderr, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if inMemory {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// demoHash is shared by every seeded account
var demoHash = sync.OnceValues(func() (string, error) {
	return auth.HashPassword(DemoPassword)
})

// seed fills an empty database with demo accounts, balances and content
func seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := demoHash()
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		accounts := []struct {
			user    User
			balance float64
		}{
			{User{Username: "alice", Email: "alice@example.com", Name: "Alice Martin", Title: "Customer"}, 1000},
			{User{Username: "bob", Email: "bob@example.com", Name: "Bob Chen", Title: "Customer",
				TwoFactorSecret: DemoTwoFactorSecret, TwoFactorEnabled: true}, 500},
			{User{Username: "admin", Email: "admin@example.com", Name: "Sandbox Admin", Title: "Administrator",
				IsAdmin: true}, 0},
		}

		var alice User
		for i := range accounts {
			user := accounts[i].user
			user.PasswordHash = hash
			user.IsActive = true
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", user.Username, err)
			}

			wallet := Wallet{UserID: user.ID, Balance: accounts[i].balance, Currency: "USD"}
			if err := tx.Create(&wallet).Error; err != nil {
				return fmt.Errorf("failed to seed wallet: %w", err)
			}

			if accounts[i].balance > 0 {
				opening := Transaction{
					WalletID:    wallet.ID,
					Type:        "deposit",
					Amount:      accounts[i].balance,
					Currency:    wallet.Currency,
					Description: "Opening balance",
					Status:      "completed",
				}
				if err := tx.Create(&opening).Error; err != nil {
					return fmt.Errorf("failed to seed transaction: %w", err)
				}
			}

			if user.Username == "alice" {
				alice = user
			}
		}

		ticket := Ticket{
			UserID:      alice.ID,
			Subject:     "Card not arriving",
			Description: "My replacement card has not arrived yet.",
			Status:      "open",
			Priority:    "medium",
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return fmt.Errorf("failed to seed ticket: %w", err)
		}

		return seedBlog(tx)
	})
}

func seedBlog(tx *gorm.DB) error {
	categories := []BlogCategory{
		{Name: "Security", Slug: "security", Description: "Keeping your account safe", Color: "#d9480f"},
		{Name: "Product", Slug: "product", Description: "What is new", Color: "#1971c2"},
	}
	if err := tx.Create(&categories).Error; err != nil {
		return fmt.Errorf("failed to seed blog categories: %w", err)
	}

	tags := []BlogTag{
		{Name: "2FA", Slug: "2fa"},
		{Name: "Passwords", Slug: "passwords"},
		{Name: "Transfers", Slug: "transfers"},
	}
	if err := tx.Create(&tags).Error; err != nil {
		return fmt.Errorf("failed to seed blog tags: %w", err)
	}

	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	later := published.AddDate(0, 1, 0)
	posts := []BlogPost{
		{
			Title:       "Turn on two-factor authentication",
			Slug:        "turn-on-2fa",
			Excerpt:     "A one-time code keeps a leaked password from being enough.",
			Content:     "Open Security, scan the QR code with your authenticator app and confirm with a code.",
			Category:    "security",
			Tags:        "2fa,passwords",
			ReadTime:    3,
			Status:      "published",
			PublishedAt: &published,
		},
		{
			Title:       "Instant transfers between members",
			Slug:        "instant-transfers",
			Excerpt:     "Send money to any member by username or email.",
			Content:     "Transfers carry a 1% fee with a minimum of 1 and a maximum of 50.",
			Category:    "product",
			Tags:        "transfers",
			ReadTime:    2,
			Status:      "published",
			PublishedAt: &later,
		},
	}
	if err := tx.Create(&posts).Error; err != nil {
		return fmt.Errorf("failed to seed blog posts: %w", err)
	}

	comment := BlogComment{
		PostID:  posts[0].ID,
		Name:    "Alice",
		Email:   "alice@example.com",
		Content: "Enabled it in two minutes.",
		Status:  "approved",
	}
	if err := tx.Create(&comment).Error; err != nil {
		return fmt.Errorf("failed to seed blog comment: %w", err)
	}
	return nil
}

// tableCounts returns the number of rows per table
func tableCounts(db *gorm.DB) (map[string]int64, error) {
	counts := map[string]int64{}
	tables := map[string]interface{}{
		"users":           &User{},
		"wallets":         &Wallet{},
		"transactions":    &Transaction{},
		"support_tickets": &Ticket{},
		"ticket_replies":  &TicketReply{},
		"login_history":   &LoginAttempt{},
		"blog_posts":      &BlogPost{},
		"blog_comments":   &BlogComment{},
	}
	for name, model := range tables {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// resetDatabase drops every row and seeds again
func resetDatabase(db *gorm.DB) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, model := range allRecords() {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return seed(db)
}
