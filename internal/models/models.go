package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// User is the profile record returned by GET /auth/me
type User struct {
	ID               ID     `json:"id"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Title            string `json:"title,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	Bio              string `json:"bio,omitempty"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	IsActive         bool   `json:"is_active"`
	IsAdmin          bool   `json:"is_admin"`
	CreatedAt        Time   `json:"created_at"`
	UpdatedAt        Time   `json:"updated_at"`
}

// UserUpdate is the body of PUT /users/me and PUT /users/{id}. Empty
// fields are left unchanged; the flags are admin only.
type UserUpdate struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Title    string `json:"title,omitempty"`
	Bio      string `json:"bio,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	IsAdmin  *bool  `json:"is_admin,omitempty"`
}

// UserRef is a user identifier as the API sent it. The login endpoint may
// return it as a JSON string or a JSON number, and it is resubmitted in the
// same form.
type UserRef struct {
	Value   string
	Numeric bool
}

// String returns the identifier without JSON quoting
func (r UserRef) String() string {
	return r.Value
}

// IsZero reports whether the reference is empty
func (r UserRef) IsZero() bool {
	return r.Value == ""
}

// MarshalJSON writes the identifier back in the form it was received
func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.Numeric {
		return []byte(r.Value), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a JSON string or number
func (r *UserRef) UnmarshalJSON(data []byte) error {
	value, numeric, err := scalar(data)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	*r = UserRef{Value: value, Numeric: numeric}
	return nil
}

// scalar reads a JSON string or number as text. null reads as "".
func scalar(data []byte) (value string, numeric bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return "", false, nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, false, nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", false, err
	}
	return n.String(), true, nil
}

// ID identifies a record. APIs send ids as JSON strings (ULIDs, UUIDs) or
// integers; either way the client only ever uses the text form.
type ID string

func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON accepts a JSON string or number
func (id *ID) UnmarshalJSON(data []byte) error {
	value, _, err := scalar(data)
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = ID(value)
	return nil
}

// Amount is a money value. Decimal-backed APIs send it as a JSON string
// such as "100.00".
type Amount float64

// Float64 returns the amount as a float64
func (a Amount) Float64() float64 {
	return float64(a)
}

// UnmarshalJSON accepts a JSON number or a numeric string
func (a *Amount) UnmarshalJSON(data []byte) error {
	value, _, err := scalar(data)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if value == "" {
		*a = 0
		return nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", value, err)
	}
	*a = Amount(f)
	return nil
}

// Time is a timestamp. Besides RFC 3339 it accepts the zone-less ISO form
// some APIs emit for naive datetimes, read as UTC.
type Time struct {
	time.Time
}

// NewTime wraps t
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON accepts RFC 3339, zone-less ISO 8601 and null
func (t *Time) UnmarshalJSON(data []byte) error {
	value, numeric, err := scalar(data)
	if err != nil || numeric {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	if value == "" {
		*t = Time{}
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		*t = Time{Time: parsed}
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			*t = Time{Time: parsed}
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", value)
}

// Credentials is the body of POST /auth/login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginResponse is returned by both login endpoints. When Requires2FA is set
// the response carries no token, only the user reference to resubmit.
type LoginResponse struct {
	AccessToken string  `json:"access_token,omitempty"`
	TokenType   string  `json:"token_type,omitempty"`
	User        *User   `json:"user,omitempty"`
	Requires2FA bool    `json:"requires_2fa,omitempty"`
	Message     string  `json:"message,omitempty"`
	UserID      UserRef `json:"user_id,omitempty"`
}

// TokenResponse is returned by POST /auth/refresh
type TokenResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Message is the generic acknowledgement body
type Message struct {
	Message string `json:"message"`
}

// Wallet represents a user's wallet
type Wallet struct {
	ID        ID     `json:"id"`
	UserID    ID     `json:"user_id"`
	Balance   Amount `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt Time   `json:"created_at"`
	UpdatedAt Time   `json:"updated_at"`
}

// WalletInput is the body of POST /wallets/ and PUT /wallets/{id}
type WalletInput struct {
	Currency string `json:"currency,omitempty"`
}

// Balance is returned by GET /wallets/balance
type Balance struct {
	Balance          Amount `json:"balance"`
	Currency         string `json:"currency"`
	TransactionCount int64  `json:"transaction_count"`
}

// AmountRequest is the body of deposit and withdraw calls
type AmountRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// TransferRequest is the body of POST /wallets/transfer
type TransferRequest struct {
	Recipient   string  `json:"recipient"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// WalletOperation is returned by deposit and withdraw
type WalletOperation struct {
	Message     string       `json:"message"`
	Wallet      *Wallet      `json:"wallet,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// TransferResult is returned by POST /wallets/transfer
type TransferResult struct {
	Message      string `json:"message"`
	SenderWallet struct {
		Balance  Amount `json:"balance"`
		Currency string `json:"currency"`
	} `json:"sender_wallet"`
	Recipient struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"recipient"`
	Transfer struct {
		Amount      Amount `json:"amount"`
		TransferFee Amount `json:"transfer_fee"`
		TotalAmount Amount `json:"total_amount"`
		Description string `json:"description"`
		Status      string `json:"status"`
	} `json:"transfer"`
}

// Transaction represents a financial transaction
type Transaction struct {
	ID          ID     `json:"id"`
	WalletID    ID     `json:"wallet_id"`
	Type        string `json:"type"` // deposit, withdrawal, transfer, adjustment
	Amount      Amount `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   Time   `json:"created_at"`
	UpdatedAt   Time   `json:"updated_at"`
}

// TransactionInput is the body of POST /transactions/ and
// PUT /transactions/{id}. Updates only change description and status.
type TransactionInput struct {
	WalletID    ID      `json:"wallet_id,omitempty"`
	Type        string  `json:"type,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// SupportTicket represents a support ticket
type SupportTicket struct {
	ID          ID     `json:"id"`
	UserID      ID     `json:"user_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	CreatedAt   Time   `json:"created_at"`
	UpdatedAt   Time   `json:"updated_at"`
}

// TicketUpdate is the body of PUT /support/tickets/{id}. Empty fields are
// left unchanged.
type TicketUpdate struct {
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
}

// TicketReply is a message on a support ticket
type TicketReply struct {
	ID        ID     `json:"id"`
	TicketID  ID     `json:"ticket_id"`
	UserID    ID     `json:"user_id"`
	Message   string `json:"message"`
	CreatedAt Time   `json:"created_at"`
}

// LoginHistory represents a login attempt
type LoginHistory struct {
	ID        ID     `json:"id"`
	UserID    ID     `json:"user_id"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Status    string `json:"status"` // success, failed, blocked
	Location  string `json:"location"`
	CreatedAt Time   `json:"created_at"`
}

// TwoFactorStatus is returned by GET /2fa/status. Secret and QRCodeURL are
// only present while 2FA is not yet enabled.
type TwoFactorStatus struct {
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	QRCodeURL        string `json:"qr_code_url,omitempty"`
	Secret           string `json:"secret,omitempty"`
	Message          string `json:"message,omitempty"`
}

// BlogPost represents a published article
type BlogPost struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content,omitempty"`
	Category    string `json:"category"`
	Tags        string `json:"tags"`
	ReadTime    int    `json:"read_time"`
	Status      string `json:"status"`
	ViewCount   int    `json:"view_count"`
	PublishedAt *Time  `json:"published_at"`
}

// BlogComment is a reader comment on a post
type BlogComment struct {
	ID        ID     `json:"id,omitempty"`
	PostID    ID     `json:"post_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Content   string `json:"content"`
	Status    string `json:"status,omitempty"`
	CreatedAt Time   `json:"created_at"`
}

// BlogCategory groups posts
type BlogCategory struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// BlogTag labels posts
type BlogTag struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// AdminDashboard is returned by GET /admin/dashboard
type AdminDashboard struct {
	Message           string `json:"message,omitempty"`
	TotalUsers        int64  `json:"total_users"`
	TotalWallets      int64  `json:"total_wallets"`
	TotalTransactions int64  `json:"total_transactions"`
	TotalBalance      Amount `json:"total_balance"`
	OpenTickets       int64  `json:"open_tickets"`
}

// SystemSettings is an opaque settings document managed by admins
type SystemSettings map[string]any

// DataStats is returned by the data management endpoints
type DataStats struct {
	Message string           `json:"message,omitempty"`
	Stats   map[string]int64 `json:"stats"`
}
