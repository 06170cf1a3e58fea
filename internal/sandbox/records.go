package sandbox

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// BaseModel contains common fields for all records
type BaseModel struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is an account of the sandbox bank
type User struct {
	BaseModel
	Username         string `gorm:"uniqueIndex;not null"`
	Email            string `gorm:"uniqueIndex;not null"`
	Name             string
	Title            string
	Bio              string
	PasswordHash     string `gorm:"not null"`
	TwoFactorSecret  string
	TwoFactorURL     string
	TwoFactorEnabled bool
	IsActive         bool `gorm:"default:true"`
	IsAdmin          bool
}

func (u *User) toModel() *models.User {
	return &models.User{
		ID:               models.ID(u.ID),
		Username:         u.Username,
		Name:             u.Name,
		Email:            u.Email,
		Title:            u.Title,
		Bio:              u.Bio,
		TwoFactorEnabled: u.TwoFactorEnabled,
		IsActive:         u.IsActive,
		IsAdmin:          u.IsAdmin,
		CreatedAt:        models.NewTime(u.CreatedAt),
		UpdatedAt:        models.NewTime(u.UpdatedAt),
	}
}

// Wallet holds the balance of one user
type Wallet struct {
	BaseModel
	UserID   string `gorm:"uniqueIndex;not null"`
	Balance  float64
	Currency string `gorm:"default:USD"`
}

func (w *Wallet) toModel() *models.Wallet {
	return &models.Wallet{
		ID:        models.ID(w.ID),
		UserID:    models.ID(w.UserID),
		Balance:   models.Amount(w.Balance),
		Currency:  w.Currency,
		CreatedAt: models.NewTime(w.CreatedAt),
		UpdatedAt: models.NewTime(w.UpdatedAt),
	}
}

// Transaction is one movement on a wallet. Debits are negative.
type Transaction struct {
	BaseModel
	WalletID    string `gorm:"index;not null"`
	Type        string `gorm:"not null"`
	Amount      float64
	Currency    string
	Description string
	Status      string
}

func (t *Transaction) toModel() *models.Transaction {
	return &models.Transaction{
		ID:          models.ID(t.ID),
		WalletID:    models.ID(t.WalletID),
		Type:        t.Type,
		Amount:      models.Amount(t.Amount),
		Currency:    t.Currency,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   models.NewTime(t.CreatedAt),
		UpdatedAt:   models.NewTime(t.UpdatedAt),
	}
}

// Ticket is a support request
type Ticket struct {
	BaseModel
	UserID      string `gorm:"index;not null"`
	Subject     string `gorm:"not null"`
	Description string
	Status      string `gorm:"default:open"`
	Priority    string `gorm:"default:medium"`
}

func (t *Ticket) toModel() *models.SupportTicket {
	return &models.SupportTicket{
		ID:          models.ID(t.ID),
		UserID:      models.ID(t.UserID),
		Subject:     t.Subject,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   models.NewTime(t.CreatedAt),
		UpdatedAt:   models.NewTime(t.UpdatedAt),
	}
}

// TicketReply is a message on a ticket
type TicketReply struct {
	BaseModel
	TicketID string `gorm:"index;not null"`
	UserID   string `gorm:"not null"`
	Message  string `gorm:"not null"`
}

func (r *TicketReply) toModel() *models.TicketReply {
	return &models.TicketReply{
		ID:        models.ID(r.ID),
		TicketID:  models.ID(r.TicketID),
		UserID:    models.ID(r.UserID),
		Message:   r.Message,
		CreatedAt: models.NewTime(r.CreatedAt),
	}
}

// LoginAttempt records one login, successful or not
type LoginAttempt struct {
	BaseModel
	UserID    string `gorm:"index;not null"`
	IPAddress string
	UserAgent string
	Status    string
	Location  string
}

func (a *LoginAttempt) toModel() models.LoginHistory {
	return models.LoginHistory{
		ID:        models.ID(a.ID),
		UserID:    models.ID(a.UserID),
		IPAddress: a.IPAddress,
		UserAgent: a.UserAgent,
		Status:    a.Status,
		Location:  a.Location,
		CreatedAt: models.NewTime(a.CreatedAt),
	}
}

// RevokedToken lists access tokens ended by logout or refresh, keyed by
// token ID
type RevokedToken struct {
	BaseModel
	UserID    string
	ExpiresAt time.Time
}

// ResetToken is a single-use password reset credential
type ResetToken struct {
	BaseModel
	UserID    string `gorm:"index;not null"`
	ExpiresAt time.Time
	Used      bool
}

// BlogCategory groups posts
type BlogCategory struct {
	BaseModel
	Name        string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Description string
	Color       string
}

func (c *BlogCategory) toModel() models.BlogCategory {
	return models.BlogCategory{
		ID:          models.ID(c.ID),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
	}
}

// BlogTag labels posts
type BlogTag struct {
	BaseModel
	Name string `gorm:"not null"`
	Slug string `gorm:"uniqueIndex;not null"`
}

func (t *BlogTag) toModel() models.BlogTag {
	return models.BlogTag{ID: models.ID(t.ID), Name: t.Name, Slug: t.Slug}
}

// BlogPost is a published article. Tags is a comma separated list of tag
// slugs.
type BlogPost struct {
	BaseModel
	Title       string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Excerpt     string
	Content     string
	Category    string `gorm:"index"`
	Tags        string
	ReadTime    int
	Status      string `gorm:"default:published"`
	ViewCount   int
	PublishedAt *time.Time
}

func (p *BlogPost) toModel(withContent bool) models.BlogPost {
	post := models.BlogPost{
		ID:          models.ID(p.ID),
		Title:       p.Title,
		Slug:        p.Slug,
		Excerpt:     p.Excerpt,
		Category:    p.Category,
		Tags:        p.Tags,
		ReadTime:    p.ReadTime,
		Status:      p.Status,
		ViewCount:   p.ViewCount,
	}
	if p.PublishedAt != nil {
		published := models.NewTime(*p.PublishedAt)
		post.PublishedAt = &published
	}
	if withContent {
		post.Content = p.Content
	}
	return post
}

// BlogComment is a reader comment
type BlogComment struct {
	BaseModel
	PostID  string `gorm:"index;not null"`
	Name    string `gorm:"not null"`
	Email   string
	Content string `gorm:"not null"`
	Status  string `gorm:"default:approved"`
}

func (c *BlogComment) toModel() models.BlogComment {
	return models.BlogComment{
		ID:        models.ID(c.ID),
		PostID:    models.ID(c.PostID),
		Name:      c.Name,
		Email:     c.Email,
		Content:   c.Content,
		Status:    c.Status,
		CreatedAt: models.NewTime(c.CreatedAt),
	}
}

// Setting is one key of the admin settings document, stored as JSON text
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// allRecords lists every table in migration order
func allRecords() []interface{} {
	return []interface{}{
		&User{}, &Wallet{}, &Transaction{}, &Ticket{}, &TicketReply{},
		&LoginAttempt{}, &RevokedToken{}, &ResetToken{},
		&BlogCategory{}, &BlogTag{}, &BlogPost{}, &BlogComment{}, &Setting{},
	}
}

// AutoMigrate creates or updates every sandbox table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allRecords()...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
