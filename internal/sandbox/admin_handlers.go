package sandbox

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bankctl-dev/bankctl/internal/models"
)

const adminTransactionLimit = 100

func (s *Server) adminDashboard(c *gin.Context) {
	var dash models.AdminDashboard
	dash.Message = "Welcome to the admin dashboard"

	counts := []struct {
		model interface{}
		where string
		into  *int64
	}{
		{&User{}, "", &dash.TotalUsers},
		{&Wallet{}, "", &dash.TotalWallets},
		{&Transaction{}, "", &dash.TotalTransactions},
		{&Ticket{}, "status = 'open'", &dash.OpenTickets},
	}
	for _, q := range counts {
		query := s.db.Model(q.model)
		if q.where != "" {
			query = query.Where(q.where)
		}
		if err := query.Count(q.into).Error; err != nil {
			s.internalError(c, err, "Failed to build dashboard")
			return
		}
	}

	var total struct{ Sum float64 }
	if err := s.db.Model(&Wallet{}).Select("COALESCE(SUM(balance), 0) AS sum").Scan(&total).Error; err != nil {
		s.internalError(c, err, "Failed to sum balances")
		return
	}
	dash.TotalBalance = models.Amount(roundCents(total.Sum))

	c.JSON(http.StatusOK, dash)
}

func (s *Server) adminUsers(c *gin.Context) {
	var users []User
	if err := s.db.Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		s.internalError(c, err, "Failed to list users")
		return
	}

	out := make([]models.User, 0, len(users))
	for i := range users {
		out = append(out, *users[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) adminTransactions(c *gin.Context) {
	s.respondTransactions(c, s.db, limitParam(c, adminTransactionLimit))
}

func (s *Server) getSettings(c *gin.Context) {
	var rows []Setting
	if err := s.db.Find(&rows).Error; err != nil {
		s.internalError(c, err, "Failed to load settings")
		return
	}

	settings := models.SystemSettings{}
	for _, row := range rows {
		var value any
		if err := json.Unmarshal([]byte(row.Value), &value); err != nil {
			s.logger.Warn().Err(err).Str("key", row.Key).Msg("Skipping unreadable setting")
			continue
		}
		settings[row.Key] = value
	}
	c.JSON(http.StatusOK, settings)
}

// saveSettings merges the posted keys into the stored settings
func (s *Server) saveSettings(c *gin.Context) {
	var settings models.SystemSettings
	if !bindJSON(c, &settings) {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range settings {
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}
			row := Setting{Key: key, Value: string(raw)}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.internalError(c, err, "Failed to save settings")
		return
	}

	c.JSON(http.StatusOK, models.Message{Message: "Settings saved"})
}

func (s *Server) dataStats(c *gin.Context) {
	counts, err := tableCounts(s.db)
	if err != nil {
		s.internalError(c, err, "Failed to collect stats")
		return
	}
	c.JSON(http.StatusOK, models.DataStats{Stats: counts})
}

func (s *Server) resetDatabase(c *gin.Context) {
	if err := resetDatabase(s.db); err != nil {
		s.internalError(c, err, "Failed to reset database")
		return
	}

	counts, err := tableCounts(s.db)
	if err != nil {
		s.internalError(c, err, "Failed to collect stats")
		return
	}

	s.logger.Warn().Str("by", currentUser(c).Username).Msg("Sandbox database reset")
	c.JSON(http.StatusOK, models.DataStats{
		Message: "Database reset to demo data",
		Stats:   counts,
	})
}
