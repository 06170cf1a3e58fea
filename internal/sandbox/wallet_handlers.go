package sandbox

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// Transfer and cash limits
const (
	MinTransferAmount    = 1.0
	MaxTransferAmount    = 1000.0
	TransferFeeRate      = 0.01
	MinTransferFee       = 1.0
	MaxTransferFee       = 50.0
	MaxDescriptionLength = 255
	MaxDepositAmount     = 10000.0

	defaultListLimit = 50
	maxListLimit     = 500
)

var errInsufficientFunds = errors.New("insufficient funds")

// TransferFee returns the fee charged on amount
func TransferFee(amount float64) float64 {
	fee := roundCents(amount * TransferFeeRate)
	return math.Min(math.Max(fee, MinTransferFee), MaxTransferFee)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// limitParam reads ?limit=, falling back to def and capping at maxListLimit
func limitParam(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return min(limit, maxListLimit)
}

// AmountRequest is the body of deposit and withdraw
type AmountRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"max=255"`
}

// TransferRequest is the body of a transfer. Recipient is a username or an
// email address.
type TransferRequest struct {
	Recipient   string  `json:"recipient" binding:"required"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// walletOf loads the wallet of userID
func walletOf(db *gorm.DB, userID string) (*Wallet, error) {
	var wallet Wallet
	if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Server) listWallets(c *gin.Context) {
	var wallets []Wallet
	if err := s.db.Where("user_id = ?", currentUser(c).ID).Find(&wallets).Error; err != nil {
		s.internalError(c, err, "Failed to list wallets")
		return
	}

	out := make([]models.Wallet, 0, len(wallets))
	for i := range wallets {
		out = append(out, *wallets[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getBalance(c *gin.Context) {
	wallet, err := walletOf(s.db, currentUser(c).ID)
	if err != nil {
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return
	}

	var count int64
	if err := s.db.Model(&Transaction{}).Where("wallet_id = ?", wallet.ID).Count(&count).Error; err != nil {
		s.internalError(c, err, "Failed to count transactions")
		return
	}

	c.JSON(http.StatusOK, models.Balance{
		Balance:          models.Amount(wallet.Balance),
		Currency:         wallet.Currency,
		TransactionCount: count,
	})
}

// cashAmount binds a deposit or withdraw body and returns the amount in
// cents precision. Amounts that round to zero are refused.
func cashAmount(c *gin.Context) (float64, string, bool) {
	var req AmountRequest
	if !bindJSON(c, &req) {
		return 0, "", false
	}
	amount := roundCents(req.Amount)
	if amount <= 0 {
		errorJSON(c, http.StatusBadRequest, "Amount must be greater than 0")
		return 0, "", false
	}
	return amount, req.Description, true
}

func (s *Server) deposit(c *gin.Context) {
	amount, description, ok := cashAmount(c)
	if !ok {
		return
	}
	if amount > MaxDepositAmount {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("Deposit amount cannot exceed %.0f", MaxDepositAmount))
		return
	}
	s.moveCash(c, "deposit", amount, description, "Deposit successful")
}

func (s *Server) withdraw(c *gin.Context) {
	amount, description, ok := cashAmount(c)
	if !ok {
		return
	}
	s.moveCash(c, "withdrawal", -amount, description, "Withdrawal successful")
}

// moveCash applies a signed amount to the caller's wallet
func (s *Server) moveCash(c *gin.Context, kind string, amount float64, description, message string) {
	if description == "" {
		description = strings.ToUpper(kind[:1]) + kind[1:]
	}

	var wallet *Wallet
	var txn Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		wallet, err = walletOf(tx, currentUser(c).ID)
		if err != nil {
			return err
		}
		if wallet.Balance+amount < 0 {
			return errInsufficientFunds
		}

		wallet.Balance = roundCents(wallet.Balance + amount)
		if err := tx.Model(wallet).Update("balance", wallet.Balance).Error; err != nil {
			return err
		}

		txn = Transaction{
			WalletID:    wallet.ID,
			Type:        kind,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: description,
			Status:      "completed",
		}
		return tx.Create(&txn).Error
	})

	switch {
	case errors.Is(err, errInsufficientFunds):
		errorJSON(c, http.StatusBadRequest, "Insufficient funds")
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return
	case err != nil:
		s.internalError(c, err, "Failed to update wallet")
		return
	}

	c.JSON(http.StatusOK, models.WalletOperation{
		Message:     message,
		Wallet:      wallet.toModel(),
		Transaction: txn.toModel(),
	})
}

func (s *Server) transfer(c *gin.Context) {
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	sender := currentUser(c)
	amount := roundCents(req.Amount)

	if amount < MinTransferAmount || amount > MaxTransferAmount {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("Amount must be between %.0f and %.0f", MinTransferAmount, MaxTransferAmount))
		return
	}
	if len(req.Description) > MaxDescriptionLength {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("Description too long (max %d characters)", MaxDescriptionLength))
		return
	}

	var recipient User
	err := s.db.Where("username = ? OR email = ?", req.Recipient, strings.ToLower(req.Recipient)).First(&recipient).Error
	if err != nil || !recipient.IsActive {
		errorJSON(c, http.StatusNotFound, "Recipient not found")
		return
	}
	if recipient.ID == sender.ID {
		errorJSON(c, http.StatusBadRequest, "Cannot transfer to yourself")
		return
	}

	fee := TransferFee(amount)
	total := roundCents(amount + fee)
	description := req.Description
	if description == "" {
		description = "Transfer to " + recipient.Username
	}

	var senderWallet *Wallet
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		senderWallet, err = walletOf(tx, sender.ID)
		if err != nil {
			return err
		}
		recipientWallet, err := walletOf(tx, recipient.ID)
		if err != nil {
			return err
		}

		if senderWallet.Balance < total {
			return errInsufficientFunds
		}

		senderWallet.Balance = roundCents(senderWallet.Balance - total)
		recipientWallet.Balance = roundCents(recipientWallet.Balance + amount)

		if err := tx.Model(senderWallet).Update("balance", senderWallet.Balance).Error; err != nil {
			return err
		}
		if err := tx.Model(recipientWallet).Update("balance", recipientWallet.Balance).Error; err != nil {
			return err
		}

		entries := []Transaction{
			{
				WalletID:    senderWallet.ID,
				Type:        "transfer",
				Amount:      -total,
				Currency:    senderWallet.Currency,
				Description: description,
				Status:      "completed",
			},
			{
				WalletID:    recipientWallet.ID,
				Type:        "transfer",
				Amount:      amount,
				Currency:    recipientWallet.Currency,
				Description: "Transfer from " + sender.Username,
				Status:      "completed",
			},
		}
		return tx.Create(&entries).Error
	})

	switch {
	case errors.Is(err, errInsufficientFunds):
		errorJSON(c, http.StatusBadRequest, "Insufficient funds")
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return
	case err != nil:
		s.internalError(c, err, "Failed to transfer")
		return
	}

	s.logger.Info().
		Str("from", sender.Username).
		Str("to", recipient.Username).
		Float64("amount", amount).
		Float64("fee", fee).
		Msg("Transfer completed")

	var result models.TransferResult
	result.Message = "Transfer successful"
	result.SenderWallet.Balance = models.Amount(senderWallet.Balance)
	result.SenderWallet.Currency = senderWallet.Currency
	result.Recipient.Username = recipient.Username
	result.Recipient.Email = recipient.Email
	result.Transfer.Amount = models.Amount(amount)
	result.Transfer.TransferFee = models.Amount(fee)
	result.Transfer.TotalAmount = models.Amount(total)
	result.Transfer.Description = description
	result.Transfer.Status = "completed"

	c.JSON(http.StatusOK, result)
}

func (s *Server) listWalletTransactions(c *gin.Context) {
	var wallet Wallet
	if err := FindByID(s.db, c.Param("id"), &wallet); err != nil {
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return
	}

	user := currentUser(c)
	if wallet.UserID != user.ID && !user.IsAdmin {
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return
	}

	s.respondTransactions(c, s.db.Where("wallet_id = ?", wallet.ID), limitParam(c, defaultListLimit))
}

func (s *Server) listTransactions(c *gin.Context) {
	wallets := s.db.Model(&Wallet{}).Select("id").Where("user_id = ?", currentUser(c).ID)
	s.respondTransactions(c, s.db.Where("wallet_id IN (?)", wallets), limitParam(c, defaultListLimit))
}

func (s *Server) respondTransactions(c *gin.Context, query *gorm.DB, limit int) {
	var txs []Transaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&txs).Error; err != nil {
		s.internalError(c, err, "Failed to list transactions")
		return
	}

	out := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		out = append(out, *txs[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

// WalletRequest opens a wallet or changes its currency
type WalletRequest struct {
	Currency string `json:"currency" binding:"omitempty,oneof=USD EUR GBP"`
}

// TransactionRequest records a transaction by hand (admin only)
type TransactionRequest struct {
	WalletID    string  `json:"wallet_id" binding:"required"`
	Type        string  `json:"type" binding:"required,oneof=deposit withdrawal adjustment"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description" binding:"max=255"`
	Status      string  `json:"status" binding:"omitempty,oneof=pending completed failed reversed"`
}

// TransactionUpdate edits the bookkeeping fields of a transaction
type TransactionUpdate struct {
	Description string `json:"description" binding:"max=255"`
	Status      string `json:"status" binding:"omitempty,oneof=pending completed failed reversed"`
}

// loadWallet finds the wallet in the path. Wallets of other users are
// reported as missing unless the caller is an admin.
func (s *Server) loadWallet(c *gin.Context) (*Wallet, bool) {
	var wallet Wallet
	if err := FindByID(s.db, c.Param("id"), &wallet); err != nil {
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return nil, false
	}

	user := currentUser(c)
	if wallet.UserID != user.ID && !user.IsAdmin {
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return nil, false
	}
	return &wallet, true
}

func (s *Server) getWallet(c *gin.Context) {
	wallet, ok := s.loadWallet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wallet.toModel())
}

func (s *Server) createWallet(c *gin.Context) {
	var req WalletRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	user := currentUser(c)
	if _, err := walletOf(s.db, user.ID); err == nil {
		errorJSON(c, http.StatusConflict, "Wallet already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.internalError(c, err, "Failed to look up wallet")
		return
	}

	wallet := Wallet{UserID: user.ID, Currency: req.Currency}
	if err := s.db.Create(&wallet).Error; err != nil {
		s.internalError(c, err, "Failed to create wallet")
		return
	}
	c.JSON(http.StatusCreated, wallet.toModel())
}

func (s *Server) updateWallet(c *gin.Context) {
	var req WalletRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, ok := s.loadWallet(c)
	if !ok {
		return
	}
	if req.Currency == "" || req.Currency == wallet.Currency {
		c.JSON(http.StatusOK, wallet.toModel())
		return
	}
	if wallet.Balance != 0 {
		errorJSON(c, http.StatusBadRequest, "Currency can only be changed on an empty wallet")
		return
	}

	wallet.Currency = req.Currency
	if err := s.db.Model(wallet).Update("currency", wallet.Currency).Error; err != nil {
		s.internalError(c, err, "Failed to update wallet")
		return
	}
	c.JSON(http.StatusOK, wallet.toModel())
}

func (s *Server) deleteWallet(c *gin.Context) {
	wallet, ok := s.loadWallet(c)
	if !ok {
		return
	}
	if wallet.Balance != 0 {
		errorJSON(c, http.StatusBadRequest, "Wallet balance must be zero")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wallet_id = ?", wallet.ID).Delete(&Transaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(wallet).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to delete wallet")
		return
	}
	c.JSON(http.StatusOK, models.Message{Message: "Wallet deleted"})
}

// loadTransaction finds the transaction in the path, visible to the wallet
// owner and to admins
func (s *Server) loadTransaction(c *gin.Context) (*Transaction, bool) {
	var txn Transaction
	if err := FindByID(s.db, c.Param("id"), &txn); err != nil {
		errorJSON(c, http.StatusNotFound, "Transaction not found")
		return nil, false
	}

	user := currentUser(c)
	if !user.IsAdmin {
		var wallet Wallet
		if err := FindByID(s.db, txn.WalletID, &wallet); err != nil || wallet.UserID != user.ID {
			errorJSON(c, http.StatusNotFound, "Transaction not found")
			return nil, false
		}
	}
	return &txn, true
}

func (s *Server) getTransaction(c *gin.Context) {
	txn, ok := s.loadTransaction(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, txn.toModel())
}

// createTransaction books a signed amount on any wallet. Withdrawals are
// stored negative whatever sign was sent.
func (s *Server) createTransaction(c *gin.Context) {
	var req TransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	amount := roundCents(req.Amount)
	switch req.Type {
	case "deposit":
		amount = math.Abs(amount)
	case "withdrawal":
		amount = -math.Abs(amount)
	}
	if amount == 0 {
		errorJSON(c, http.StatusBadRequest, "Amount must not be zero")
		return
	}
	if req.Status == "" {
		req.Status = "completed"
	}
	if req.Description == "" {
		req.Description = "Manual " + req.Type
	}

	var txn Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var wallet Wallet
		if err := FindByID(tx, req.WalletID, &wallet); err != nil {
			return err
		}

		if req.Status == "completed" {
			if wallet.Balance+amount < 0 {
				return errInsufficientFunds
			}
			if err := tx.Model(&wallet).Update("balance", roundCents(wallet.Balance+amount)).Error; err != nil {
				return err
			}
		}

		txn = Transaction{
			WalletID:    wallet.ID,
			Type:        req.Type,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: req.Description,
			Status:      req.Status,
		}
		return tx.Create(&txn).Error
	})

	switch {
	case errors.Is(err, errInsufficientFunds):
		errorJSON(c, http.StatusBadRequest, "Insufficient funds")
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		errorJSON(c, http.StatusNotFound, "Wallet not found")
		return
	case err != nil:
		s.internalError(c, err, "Failed to create transaction")
		return
	}

	s.logger.Info().
		Str("wallet_id", txn.WalletID).
		Str("type", txn.Type).
		Float64("amount", txn.Amount).
		Str("by", currentUser(c).Username).
		Msg("Manual transaction recorded")
	c.JSON(http.StatusCreated, txn.toModel())
}

// updateTransaction edits description and status. Balances are not
// recalculated.
func (s *Server) updateTransaction(c *gin.Context) {
	var req TransactionUpdate
	if !bindJSON(c, &req) {
		return
	}

	txn, ok := s.loadTransaction(c)
	if !ok {
		return
	}

	if req.Description != "" {
		txn.Description = req.Description
	}
	if req.Status != "" {
		txn.Status = req.Status
	}
	if err := s.db.Model(txn).Select("description", "status").Updates(txn).Error; err != nil {
		s.internalError(c, err, "Failed to update transaction")
		return
	}
	c.JSON(http.StatusOK, txn.toModel())
}

func (s *Server) deleteTransaction(c *gin.Context) {
	txn, ok := s.loadTransaction(c)
	if !ok {
		return
	}
	if err := s.db.Delete(txn).Error; err != nil {
		s.internalError(c, err, "Failed to delete transaction")
		return
	}
	c.JSON(http.StatusOK, models.Message{Message: "Transaction deleted"})
}
